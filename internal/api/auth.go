package api

import (
	"context"
	"net/http"

	"exptrack/internal/core"
)

// Login authenticates with username and password, or with a Google ID
// token when creds carries one.
func (c *Client) Login(ctx context.Context, creds core.Credentials) (core.AuthResponse, error) {
	path := "/auth/login"
	if creds.IsExternal() {
		path = "/auth/google"
	}
	resp, err := send[core.AuthResponse](ctx, c, http.MethodPost, path, creds)
	if err == nil {
		c.ResetCache()
	}
	return resp, err
}

func (c *Client) Register(ctx context.Context, reg core.Registration) (core.AuthResponse, error) {
	resp, err := send[core.AuthResponse](ctx, c, http.MethodPost, "/auth/register", reg)
	if err == nil {
		c.ResetCache()
	}
	return resp, err
}

// Verify resolves the identity behind the persisted token.
func (c *Client) Verify(ctx context.Context) (core.Identity, error) {
	return get[core.Identity](ctx, c, "/auth/verify", nil)
}

// ForgotPassword asks the backend to email a reset link. identifier is a
// username or an email address.
func (c *Client) ForgotPassword(ctx context.Context, identifier string) error {
	body := map[string]string{"identifier": identifier}
	return c.do(ctx, http.MethodPost, "/auth/forgot-password", nil, body, nil)
}

// ResetPassword completes the flow started by ForgotPassword.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := map[string]string{"token": token, "newPassword": newPassword}
	return c.do(ctx, http.MethodPost, "/auth/reset-password", nil, body, nil)
}
