// Package pkgconfig provides a small abstraction for reading configuration values.
//
// The application expects config values to come from a concrete implementation
// (Viper). Business code should depend on the Config interface so it stays easy
// to test and does not care where values come from (file, .env, environment).
//
// Secrets such as the Feishu app secret are normally kept out of the YAML file:
// a ".env" file next to the binary is loaded first and every key can be
// overridden by an environment variable ("feishu.app_secret" -> FEISHU_APP_SECRET).
package pkgconfig
