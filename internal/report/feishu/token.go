package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

// tokenMargin is how long before expiry a cached token stops being used.
const tokenMargin = 60 * time.Second

type tokenData struct {
	Token      string `json:"tenant_access_token"`
	ExpireTime int64  `json:"expire_time"`
}

// TokenManager hands out tenant access tokens, reusing a cached one while it
// has more than a minute left. The cache is persisted as JSON so separate
// runs of the CLI share it.
type TokenManager struct {
	mu     sync.Mutex
	cfg    Config
	client *http.Client
	now    func() time.Time
	data   tokenData
}

// NewTokenManager loads the cache file. A missing or corrupt file counts as
// an empty cache.
func NewTokenManager(cfg Config, client *http.Client) *TokenManager {
	cfg = cfg.withDefaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	m := &TokenManager{cfg: cfg, client: client, now: time.Now}
	m.data = m.load()

	return m
}

// Token returns a valid tenant access token, fetching a new one if needed.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.data.Token != "" && m.data.ExpireTime > now.Add(tokenMargin).Unix() {
		return m.data.Token, nil
	}

	token, expire, err := m.fetch(ctx)
	if err != nil {
		return "", err
	}

	m.data = tokenData{Token: token, ExpireTime: now.Unix() + expire}
	if err := m.save(); err != nil {
		slog.WarnContext(ctx, "failed to persist feishu token cache", "file", m.cfg.TokenFile, "error", err)
	}

	return token, nil
}

// Invalidate drops the cached token so the next Token call fetches a new one.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	m.data = tokenData{}
	m.mu.Unlock()
}

func (m *TokenManager) fetch(ctx context.Context) (string, int64, error) {
	body, err := json.Marshal(map[string]string{
		"app_id":     m.cfg.AppID,
		"app_secret": m.cfg.AppSecret,
	})
	if err != nil {
		return "", 0, err
	}

	url := m.cfg.BaseURL + "/auth/v3/tenant_access_token/internal"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("feishu: POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	var out struct {
		Code   int    `json:"code"`
		Msg    string `json:"msg"`
		Token  string `json:"tenant_access_token"`
		Expire int64  `json:"expire"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("feishu: decode token response (HTTP %d): %w", resp.StatusCode, err)
	}
	if out.Code != 0 {
		return "", 0, &APIError{Code: out.Code, Msg: out.Msg}
	}
	if out.Token == "" {
		return "", 0, fmt.Errorf("feishu: empty tenant_access_token")
	}

	return out.Token, out.Expire, nil
}

func (m *TokenManager) load() tokenData {
	raw, err := os.ReadFile(m.cfg.TokenFile)
	if err != nil {
		return tokenData{}
	}

	var data tokenData
	if err := json.Unmarshal(raw, &data); err != nil {
		return tokenData{}
	}

	return data
}

func (m *TokenManager) save() error {
	raw, err := json.Marshal(m.data)
	if err != nil {
		return err
	}

	return os.WriteFile(m.cfg.TokenFile, raw, 0o600)
}
