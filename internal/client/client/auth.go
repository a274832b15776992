package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/mcpforge/internal/client/models"
)

const (
	PathAuthStatus  = "/auth/"
	PathMe          = "/auth/me"
	PathSession     = "/auth/session"
	PathMagicLink   = "/auth/magic-link"
	PathVerify      = "/auth/verify"
	PathOAuth       = "/auth/oauth"
	PathOAuthGitHub = "/auth/oauth/github"
)

// GetMe returns the profile behind token. An empty token falls back to the
// session and the token store. A 401 ends the session.
func (c *Client) GetMe(ctx context.Context, token string) (*models.User, error) {
	var body struct {
		Success bool         `json:"success"`
		User    *models.User `json:"user"`
		Error   string       `json:"error"`
	}
	if err := c.call(ctx, http.MethodGet, PathMe, nil, &body, token); err != nil {
		return nil, fmt.Errorf("client.GetMe: %w", err)
	}
	if !body.Success || body.User == nil {
		return nil, fmt.Errorf("client.GetMe: %w", &BackendError{Message: body.Error})
	}
	return body.User, nil
}

// CreateSession exchanges a provider identity for a backend credential.
func (c *Client) CreateSession(ctx context.Context, p models.SessionPayload) (*models.AuthResponse, error) {
	var body models.AuthResponse
	if err := c.callPublic(ctx, http.MethodPost, PathSession, p, &body); err != nil {
		return nil, fmt.Errorf("client.CreateSession: %w", err)
	}
	if !body.Success || body.AccessToken == "" {
		return nil, fmt.Errorf("client.CreateSession: %w", &BackendError{Message: body.Error})
	}
	return &body, nil
}

// AuthStatus returns the backend's auth status document. Its shape is not
// interpreted.
func (c *Client) AuthStatus(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.callPublic(ctx, http.MethodGet, PathAuthStatus, nil, &raw); err != nil {
		return nil, fmt.Errorf("client.AuthStatus: %w", err)
	}
	return raw, nil
}

// Ping reports whether the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.AuthStatus(ctx); err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			// Reachable, just unhappy.
			return nil
		}
		return err
	}
	return nil
}
