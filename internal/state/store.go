// Package state persists the small amount of client state that must survive
// a restart: the bearer token and the identifiers used to prefill login and
// password recovery.
package state

import (
	"context"
	"errors"
)

// Keys under which client state is persisted.
const (
	KeyToken          = "token"
	KeyLastLoginEmail = "lastLoginEmail"
	KeyLastUsername   = "lastUsername"
)

var ErrClosed = errors.New("state store closed")

// Store is a durable string key/value store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
