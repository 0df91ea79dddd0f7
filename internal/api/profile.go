package api

import (
	"context"
	"errors"
	"net/http"

	"exptrack/internal/core"
)

type Profiles struct{ c *Client }

func (c *Client) Profile() Profiles { return Profiles{c} }

func (p Profiles) Get(ctx context.Context) (core.Profile, error) {
	return get[core.Profile](ctx, p.c, "/profile", nil)
}

func (p Profiles) Update(ctx context.Context, profile core.Profile) (core.Profile, error) {
	return send[core.Profile](ctx, p.c, http.MethodPut, "/profile", profile)
}

func (p Profiles) ChangePassword(ctx context.Context, change core.PasswordChange) error {
	if change.CurrentPassword == "" || change.NewPassword == "" {
		return errors.New("current and new password are required")
	}
	if len(change.NewPassword) < 6 {
		return core.ErrWeakPassword
	}
	return p.c.do(ctx, http.MethodPost, "/profile/change-password", nil, change, nil)
}
