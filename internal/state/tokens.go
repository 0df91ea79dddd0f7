package state

import (
	"context"
	"strings"
	"sync"
)

// Tokens is the typed view over a Store used by the session and the API
// client. All token mutations are serialised so that ClearToken reports a
// removal to exactly one caller.
type Tokens struct {
	mu    sync.Mutex
	store Store
}

func NewTokens(store Store) *Tokens {
	return &Tokens{store: store}
}

// Token returns the persisted bearer token, or "" when none is stored.
func (t *Tokens) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, _, err := t.store.Get(ctx, KeyToken)
	return v, err
}

func (t *Tokens) SetToken(ctx context.Context, token string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Set(ctx, KeyToken, token)
}

// ClearToken deletes the token and reports whether one was present.
func (t *Tokens) ClearToken(ctx context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok, err := t.store.Get(ctx, KeyToken)
	if err != nil {
		return false, err
	}
	if err := t.store.Delete(ctx, KeyToken); err != nil {
		return false, err
	}
	return ok && v != "", nil
}

// ClearTokenIf deletes the token only while it still equals expected and
// reports whether it did. A token replaced in the meantime is kept.
func (t *Tokens) ClearTokenIf(ctx context.Context, expected string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok, err := t.store.Get(ctx, KeyToken)
	if err != nil {
		return false, err
	}
	if !ok || v == "" || v != expected {
		return false, nil
	}
	if err := t.store.Delete(ctx, KeyToken); err != nil {
		return false, err
	}
	return true, nil
}

// RememberLogin records the email of the last successful login.
func (t *Tokens) RememberLogin(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	return t.store.Set(ctx, KeyLastLoginEmail, email)
}

// RememberUsername records the username typed at the last login attempt.
func (t *Tokens) RememberUsername(ctx context.Context, username string) error {
	if strings.TrimSpace(username) == "" {
		return nil
	}
	return t.store.Set(ctx, KeyLastUsername, username)
}

// LastLoginEmail returns the remembered email, if any.
func (t *Tokens) LastLoginEmail(ctx context.Context) (string, error) {
	v, _, err := t.store.Get(ctx, KeyLastLoginEmail)
	return v, err
}

// RecoveryIdentifier is what the forgot-password form is prefilled with:
// the last username, else the last login email.
func (t *Tokens) RecoveryIdentifier(ctx context.Context) (string, error) {
	if v, ok, err := t.store.Get(ctx, KeyLastUsername); err != nil {
		return "", err
	} else if ok && v != "" {
		return v, nil
	}
	v, _, err := t.store.Get(ctx, KeyLastLoginEmail)
	return v, err
}
