package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Client calls the bitable API with a bounded retry loop.
type Client struct {
	cfg    Config
	http   *http.Client
	tokens *TokenManager
}

// NewClient builds a Client and its TokenManager from cfg.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	httpClient := &http.Client{Timeout: cfg.Timeout}

	return &Client{
		cfg:    cfg,
		http:   httpClient,
		tokens: NewTokenManager(cfg, httpClient),
	}
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// do sends one API call, retrying up to MaxAttempts times. A rejected token
// is dropped and the call retried at once; any other failure waits Backoff
// first. The last error is returned when every attempt failed.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("feishu: marshal request: %w", err)
		}
		payload = raw
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		err := c.once(ctx, method, path, query, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return err
		}
		if attempt == c.cfg.MaxAttempts {
			break
		}

		if errors.Is(err, ErrTokenInvalid) {
			slog.WarnContext(ctx, "feishu token rejected, refreshing", "path", path, "attempt", attempt)
			c.tokens.Invalidate()
			continue
		}

		slog.WarnContext(ctx, "feishu request failed, retrying", "path", path, "attempt", attempt, "error", err)
		if err := sleepCtx(ctx, c.cfg.Backoff); err != nil {
			return fmt.Errorf("feishu: canceled during retry: %w", err)
		}
	}

	return lastErr
}

func (c *Client) once(ctx context.Context, method, path string, query url.Values, payload []byte, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("feishu: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("feishu: read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("feishu: HTTP %d from %s: %s", resp.StatusCode, path, truncate(raw, 256))
	}
	if err := checkCode(env.Code, env.Msg); err != nil {
		return err
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("feishu: decode data: %w", err)
	}

	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
