// Package oauth runs the Google sign-in flow for a terminal client: it
// prints the consent URL, receives the authorization code on a loopback
// redirect and exchanges it for an ID token the backend accepts.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"exptrack/internal/log"
)

const (
	DefaultPort    = 8085
	DefaultTimeout = 5 * time.Minute
	CallbackPath   = "/callback"
)

var (
	ErrDenied        = errors.New("authorization denied")
	ErrStateMismatch = errors.New("oauth state mismatch")
	ErrTimeout       = errors.New("authorization timed out")
	ErrNoIDToken     = errors.New("token response carries no id_token")
)

// Scopes requested for sign-in. The ID token is all the backend needs.
var Scopes = []string{"openid", "email", "profile"}

// ConfigFromJSON reads a Google OAuth client file as downloaded from the
// cloud console.
func ConfigFromJSON(clientJSON []byte) (*oauth2.Config, error) {
	cfg, err := google.ConfigFromJSON(clientJSON, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

type Flow struct {
	config  *oauth2.Config
	port    int
	timeout time.Duration
	logger  *log.Logger
	prompt  func(authURL string)
}

type Option func(*Flow)

// WithPort sets the loopback port. Zero picks a free port.
func WithPort(port int) Option {
	return func(f *Flow) { f.port = port }
}

func WithTimeout(d time.Duration) Option {
	return func(f *Flow) {
		if d > 0 {
			f.timeout = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithPrompt sets how the consent URL reaches the user.
func WithPrompt(prompt func(authURL string)) Option {
	return func(f *Flow) { f.prompt = prompt }
}

func NewFlow(cfg *oauth2.Config, opts ...Option) *Flow {
	f := &Flow{
		config:  cfg,
		port:    DefaultPort,
		timeout: DefaultTimeout,
		logger:  log.Discard(),
		prompt:  func(string) {},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.WithComponent(log.ComponentOAuth)
	return f
}

type callback struct {
	code string
	err  error
}

// IDToken runs the flow once and returns the Google ID token.
func (f *Flow) IDToken(ctx context.Context) (string, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(f.port)))
	if err != nil {
		return "", fmt.Errorf("listen for oauth redirect: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	cfg := *f.config
	cfg.RedirectURL = "http://localhost:" + strconv.Itoa(port) + CallbackPath
	state := uuid.NewString()

	results := make(chan callback, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, func(w http.ResponseWriter, r *http.Request) {
		res := readCallback(r, state)
		if res.err != nil {
			http.Error(w, "Sign-in failed: "+res.err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
		}
		select {
		case results <- res:
		default:
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	f.logger.InfoContext(ctx, "Waiting for Google sign-in", log.FieldPath, cfg.RedirectURL)
	f.prompt(cfg.AuthCodeURL(state))

	var res callback
	select {
	case res = <-results:
	case <-time.After(f.timeout):
		return "", ErrTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if res.err != nil {
		return "", res.err
	}

	tok, err := cfg.Exchange(ctx, res.code)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return "", ErrNoIDToken
	}
	return idToken, nil
}

func readCallback(r *http.Request, state string) callback {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		return callback{err: fmt.Errorf("%w: %s", ErrDenied, e)}
	}
	if q.Get("state") != state {
		return callback{err: ErrStateMismatch}
	}
	code := q.Get("code")
	if code == "" {
		return callback{err: errors.New("missing authorization code")}
	}
	return callback{code: code}
}
