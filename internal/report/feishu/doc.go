// Package feishu is a small client for the Feishu open platform: tenant
// access tokens with a file cache, and the bitable endpoints used to push
// summary rows and to read the lab order table.
package feishu
