// Package app wires the API client, the session store and the route gate
// into one client instance. Unauthorized responses travel from the API
// client to the session as messages on a channel.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"exptrack/internal/api"
	"exptrack/internal/cache"
	"exptrack/internal/core"
	"exptrack/internal/gate"
	"exptrack/internal/log"
	"exptrack/internal/session"
	"exptrack/internal/state"
)

// maxRedirects bounds how many gate redirects one navigation may follow.
const maxRedirects = 4

const defaultSweepInterval = time.Minute

var ErrRedirectLoop = errors.New("too many redirects")

type Options struct {
	API    api.Options
	Tokens *state.Tokens
	Logger *log.Logger
	Sink   session.EventSink

	// SweepInterval is how often Run purges expired list cache entries.
	SweepInterval time.Duration
}

type App struct {
	client  *api.Client
	session *session.Store
	logger  *log.Logger
	events  chan api.UnauthorizedEvent
	caches  *cache.Manager
	sweep   time.Duration

	mu      sync.Mutex
	current string
}

func New(opts Options) (*App, error) {
	if opts.Tokens == nil {
		return nil, errors.New("app: token store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}

	a := &App{
		logger:  logger.WithComponent(log.ComponentApp),
		events:  make(chan api.UnauthorizedEvent, 8),
		current: gate.WelcomePath,
		caches:  cache.NewManager(logger),
		sweep:   opts.SweepInterval,
	}
	if a.sweep <= 0 {
		a.sweep = defaultSweepInterval
	}

	apiOpts := opts.API
	apiOpts.Tokens = opts.Tokens
	apiOpts.Logger = logger
	apiOpts.OnUnauthorized = a.post
	client, err := api.New(apiOpts)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.client = client
	for _, c := range client.Caches() {
		a.caches.Register(c)
	}

	sessOpts := []session.Option{session.WithLogger(logger)}
	if opts.Sink != nil {
		sessOpts = append(sessOpts, session.WithEventSink(opts.Sink))
	}
	a.session = session.New(client, opts.Tokens, sessOpts...)
	return a, nil
}

func (a *App) Client() *api.Client { return a.client }

func (a *App) Session() *session.Store { return a.session }

// post never blocks the request goroutine. The client raises at most one
// event per purged token, so a full buffer only drops duplicates of an
// expiry that is already queued.
func (a *App) post(ev api.UnauthorizedEvent) {
	select {
	case a.events <- ev:
	default:
		a.logger.Warn("Unauthorized event dropped, queue full", log.FieldPath, ev.Path)
	}
}

// Start runs session initialization.
func (a *App) Start(ctx context.Context) error {
	return a.session.Initialize(ctx)
}

// Run handles unauthorized events until ctx is done. Expired cache
// entries are swept in the background meanwhile.
func (a *App) Run(ctx context.Context) error {
	a.caches.Start(ctx, a.sweep)
	defer a.caches.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-a.events:
			if err := a.handleUnauthorized(ctx, ev); err != nil {
				return err
			}
		}
	}
}

// Drain handles the events already queued and returns how many there were.
func (a *App) Drain(ctx context.Context) (int, error) {
	n := 0
	for {
		select {
		case ev := <-a.events:
			n++
			if err := a.handleUnauthorized(ctx, ev); err != nil {
				return n, err
			}
		default:
			return n, nil
		}
	}
}

func (a *App) handleUnauthorized(ctx context.Context, ev api.UnauthorizedEvent) error {
	a.logger.InfoContext(ctx, "Ending rejected session",
		log.FieldOperation, log.OpExpire,
		log.FieldMethod, ev.Method,
		log.FieldPath, ev.Path,
		log.FieldRequestID, ev.RequestID)
	if err := a.session.Expire(ctx); err != nil {
		return fmt.Errorf("expire session: %w", err)
	}
	_, err := a.Navigate(ctx, gate.LoginPath)
	return err
}

// Navigate moves to path once the session is ready, following the gate's
// redirects and index routes. It returns the route that ends up rendered.
func (a *App) Navigate(ctx context.Context, path string) (gate.Route, error) {
	select {
	case <-a.session.Ready():
	case <-ctx.Done():
		return gate.Route{}, ctx.Err()
	}

	target := path
	for hop := 0; hop <= maxRedirects; hop++ {
		route, err := gate.Lookup(target)
		if err != nil {
			return gate.Route{}, err
		}
		d := gate.Decide(a.session.View(), route)
		switch {
		case d.Outcome == gate.Denied:
			a.logger.DebugContext(ctx, "Navigation redirected",
				log.FieldRoute, route.Path, log.FieldRedirect, d.Redirect)
			target = d.Redirect
		case route.IndexOf != "":
			target = route.IndexOf
		default:
			a.mu.Lock()
			a.current = route.Path
			a.mu.Unlock()
			return route, nil
		}
	}
	return gate.Route{}, fmt.Errorf("%w: %s", ErrRedirectLoop, path)
}

// Current is the path of the last rendered route.
func (a *App) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Login signs in and lands on the dashboard.
func (a *App) Login(ctx context.Context, creds core.Credentials) (session.Result, error) {
	res := a.session.Login(ctx, creds)
	if !res.Success {
		return res, nil
	}
	_, err := a.Navigate(ctx, gate.LandingPath)
	return res, err
}

func (a *App) Register(ctx context.Context, reg core.Registration) (session.Result, error) {
	res := a.session.Register(ctx, reg)
	if !res.Success {
		return res, nil
	}
	_, err := a.Navigate(ctx, gate.LandingPath)
	return res, err
}

// Logout ends the session, drops cached lists and returns to the login page.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	a.client.ResetCache()
	_, err := a.Navigate(ctx, gate.LoginPath)
	return err
}
