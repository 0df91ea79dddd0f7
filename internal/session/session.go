// Package session owns the lifecycle of the authenticated identity: it
// restores it from the persisted token at start-up, establishes it through
// login or registration and tears it down on logout or server rejection.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"exptrack/internal/api"
	"exptrack/internal/core"
	"exptrack/internal/gate"
	"exptrack/internal/log"
	"exptrack/internal/state"
)

// User facing failure messages.
const (
	MsgBlocked            = "Your account has been blocked. Please contact support."
	MsgInvalidCredentials = "Invalid username or password"
	MsgLoginFailed        = "Login failed"
	MsgRegisterFailed     = "Registration failed"
	MsgMissingCredentials = "Please enter your username and password"
)

// AuthAPI is the subset of the backend the session needs.
type AuthAPI interface {
	Login(ctx context.Context, creds core.Credentials) (core.AuthResponse, error)
	Register(ctx context.Context, reg core.Registration) (core.AuthResponse, error)
	Verify(ctx context.Context) (core.Identity, error)
}

// Result is the outcome of Login and Register. Failures are reported here,
// never as Go errors.
type Result struct {
	Success bool
	Error   string
}

type Store struct {
	api    AuthAPI
	tokens *state.Tokens
	logger *log.Logger
	sink   EventSink
	now    func() time.Time

	initOnce sync.Once
	initErr  error
	ready    chan struct{}

	mu       sync.RWMutex
	identity *core.Identity
	// generation increments on every identity change so a slow start-up
	// verification cannot overwrite a newer login or logout.
	generation uint64
}

type Option func(*Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEventSink publishes lifecycle events to sink.
func WithEventSink(sink EventSink) Option {
	return func(s *Store) { s.sink = sink }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(authAPI AuthAPI, tokens *state.Tokens, opts ...Option) *Store {
	s := &Store{
		api:    authAPI,
		tokens: tokens,
		logger: log.Discard(),
		now:    time.Now,
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentSession)
	return s
}

// Initialize resolves the identity from the persisted token. It runs once;
// later and concurrent callers wait for the first run and get its result.
// A failed verification purges the token and is never retried.
func (s *Store) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		defer close(s.ready)
		s.initErr = s.initialize(ctx)
	})
	return s.initErr
}

func (s *Store) initialize(ctx context.Context) error {
	gen := s.currentGeneration()

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		s.logger.DebugContext(ctx, "No persisted token, starting signed out")
		return nil
	}

	identity, err := s.api.Verify(ctx)
	if err != nil {
		if s.currentGeneration() != gen {
			s.logger.DebugContext(ctx, "Discarding stale verification failure", log.FieldError, err)
			return nil
		}
		s.logger.InfoContext(ctx, "Token verification failed", log.FieldError, err)
		cleared, clearErr := s.tokens.ClearTokenIf(ctx, token)
		if clearErr != nil {
			return clearErr
		}
		if cleared {
			s.emit(ctx, EventVerifyFailed, nil)
		}
		return nil
	}

	if !s.setIdentityIf(gen, &identity) {
		s.logger.DebugContext(ctx, "Discarding stale verification result")
		return nil
	}
	s.logger.InfoContext(ctx, "Session restored", log.NewFields().
		WithOperation(log.OpVerify).
		WithUser(identity.UserID.String(), identity.Username, identity.Role.String()).ToSlice()...)
	return nil
}

// Loading reports whether Initialize has not completed yet.
func (s *Store) Loading() bool {
	select {
	case <-s.ready:
		return false
	default:
		return true
	}
}

// Ready is closed once Initialize has completed.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Identity returns a copy of the current identity.
func (s *Store) Identity() (core.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return core.Identity{}, false
	}
	return *s.identity, true
}

// View is the snapshot the route gate decides on.
func (s *Store) View() gate.Session {
	view := gate.Session{Loading: s.Loading()}
	if id, ok := s.Identity(); ok {
		view.Identity = &id
	}
	return view
}

func (s *Store) Login(ctx context.Context, creds core.Credentials) Result {
	if err := creds.Validate(); err != nil {
		return Result{Error: MsgMissingCredentials}
	}
	if !creds.IsExternal() {
		if err := s.tokens.RememberUsername(ctx, creds.Username); err != nil {
			s.logger.WarnContext(ctx, "Failed to remember username", log.FieldError, err)
		}
	}

	resp, err := s.api.Login(ctx, creds)
	if err != nil {
		msg := loginFailure(err)
		s.logger.InfoContext(ctx, "Login rejected", log.NewFields().
			WithOperation(log.OpLogin).
			WithUser("", creds.Username, "").
			WithError(err).ToSlice()...)
		return Result{Error: msg}
	}
	return s.establish(ctx, resp, EventLogin, MsgLoginFailed)
}

func (s *Store) Register(ctx context.Context, reg core.Registration) Result {
	if err := reg.Validate(); err != nil {
		return Result{Error: registrationInvalid(err)}
	}
	resp, err := s.api.Register(ctx, reg)
	if err != nil {
		s.logger.InfoContext(ctx, "Registration rejected", log.NewFields().
			WithOperation(log.OpRegister).
			WithUser("", reg.Username, "").
			WithError(err).ToSlice()...)
		return Result{Error: failureMessage(err, MsgRegisterFailed)}
	}
	return s.establish(ctx, resp, EventRegister, MsgRegisterFailed)
}

func (s *Store) establish(ctx context.Context, resp core.AuthResponse, kind EventKind, fallback string) Result {
	if resp.Token == "" {
		s.logger.WarnContext(ctx, "Backend returned no token", log.FieldOperation, string(kind))
		return Result{Error: fallback}
	}
	if err := s.tokens.SetToken(ctx, resp.Token); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist token", log.FieldError, err)
		return Result{Error: fallback}
	}
	if err := s.tokens.RememberLogin(ctx, resp.Email); err != nil {
		s.logger.WarnContext(ctx, "Failed to remember login email", log.FieldError, err)
	}

	identity := resp.Identity
	s.setIdentity(&identity)
	s.logger.InfoContext(ctx, "Signed in", log.NewFields().
		WithOperation(string(kind)).
		WithUser(identity.UserID.String(), identity.Username, identity.Role.String()).ToSlice()...)
	s.emit(ctx, kind, &identity)
	return Result{Success: true}
}

// Logout purges the token and the identity. Remembered login identifiers
// are kept for password recovery. Calling it again is harmless.
func (s *Store) Logout(ctx context.Context) error {
	prev := s.setIdentity(nil)
	if _, err := s.tokens.ClearToken(ctx); err != nil {
		return err
	}
	if prev != nil {
		s.logger.InfoContext(ctx, "Signed out", log.FieldUsername, prev.Username)
		s.emit(ctx, EventLogout, prev)
	}
	return nil
}

// Expire drops the identity after the server rejected the token. The API
// client has already purged it; clearing again keeps the store consistent
// when the event arrives from elsewhere.
func (s *Store) Expire(ctx context.Context) error {
	prev := s.setIdentity(nil)
	if _, err := s.tokens.ClearToken(ctx); err != nil {
		return err
	}
	if prev != nil {
		s.logger.InfoContext(ctx, "Session expired", log.FieldUsername, prev.Username)
		s.emit(ctx, EventExpired, prev)
	}
	return nil
}

// Refresh re-reads the identity from the server after a confirmed change
// such as saving the country. A 401 ends the session.
func (s *Store) Refresh(ctx context.Context) error {
	identity, err := s.api.Verify(ctx)
	if err != nil {
		if api.StatusOf(err) == 401 {
			return errors.Join(err, s.Expire(ctx))
		}
		return err
	}
	s.setIdentity(&identity)
	return nil
}

func (s *Store) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *Store) setIdentity(id *core.Identity) *core.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.identity
	s.identity = id
	s.generation++
	return prev
}

func (s *Store) setIdentityIf(gen uint64, id *core.Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return false
	}
	s.identity = id
	s.generation++
	return true
}
