package feishu

import "time"

const (
	DefaultBaseURL     = "https://open.feishu.cn/open-apis"
	DefaultTokenFile   = "feishu_token.json"
	DefaultMaxAttempts = 3
	DefaultBackoff     = time.Second
	DefaultTimeout     = 15 * time.Second
)

// Config holds credentials and retry settings. Zero values fall back to the
// Default constants; a negative Backoff disables the wait between retries.
type Config struct {
	BaseURL     string
	AppID       string
	AppSecret   string
	TokenFile   string
	MaxAttempts int
	Backoff     time.Duration
	Timeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.TokenFile == "" {
		c.TokenFile = DefaultTokenFile
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	switch {
	case c.Backoff == 0:
		c.Backoff = DefaultBackoff
	case c.Backoff < 0:
		c.Backoff = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	return c
}
