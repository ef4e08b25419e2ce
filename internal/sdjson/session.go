package sdjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// tokenResponse is the POST /token payload. The token value itself is never
// logged or persisted.
type tokenResponse struct {
	Token    string `json:"token"`
	ServerID string `json:"serverID"`
	Datetime string `json:"datetime"`
}

// Authenticate acquires a fresh session token. Invalid credentials, a
// disabled account, or a non-success embedded code all surface as ErrAuth.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticateLocked(ctx)
}

func (c *Client) authenticateLocked(ctx context.Context) error {
	body := map[string]string{"username": c.username, "password": c.passwordSHA1}
	raw, err := c.do(ctx, http.MethodPost, "/token", body, callOpts{noToken: true})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			// Any embedded failure on the token endpoint is an auth problem.
			return fmt.Errorf("%w: %w", ErrAuth, apiErr)
		}
		return fmt.Errorf("acquire token: %w", err)
	}
	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return fmt.Errorf("%w: parse token response: %w", ErrAuth, err)
	}
	if tr.Token == "" {
		return fmt.Errorf("%w: empty token in response", ErrAuth)
	}
	c.token = tr.Token
	c.issuedAt = time.Now()
	zap.L().Debug("session token acquired", zap.String("server", tr.ServerID))
	return nil
}

// ensureToken re-authenticates when the session is absent or past its TTL;
// otherwise the existing session is kept unchanged.
func (c *Client) ensureToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Since(c.issuedAt) < tokenTTL {
		return nil
	}
	return c.authenticateLocked(ctx)
}

// invalidateToken drops the current session so the next call re-auths.
// Called when the service reports TOKEN_EXPIRED despite the local TTL.
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.issuedAt = time.Time{}
	c.mu.Unlock()
}
