// Package apitest runs an in-process fake of the expense tracker backend for
// tests. Tokens are real HS256 JWTs so verification behaves like the server.
package apitest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"exptrack/internal/core"
)

const Prefix = "/expense-tracker-api"

// User is an account known to the fake backend.
type User struct {
	ID            core.ID
	Username      string
	Email         string
	Password      string
	FirstName     string
	LastName      string
	Role          core.Role
	IsGroupMember bool
	Country       string
	Blocked       bool
}

func (u User) identity() core.Identity {
	return core.Identity{
		UserID:        u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Role:          u.Role,
		IsGroupMember: u.IsGroupMember,
		Country:       u.Country,
	}
}

type override struct {
	status int
	body   string
}

type Server struct {
	*httptest.Server

	secret []byte

	mu        sync.Mutex
	users     map[string]*User
	google    map[string]string
	nextID    int
	hits      map[string]int
	overrides map[string]override
	tokenTTL  time.Duration

	Summary          core.DashboardSummary
	CategorySpending []core.NamedAmount
	MonthlyTrend     []core.NamedAmount
	BudgetStatuses   []core.BudgetStatus
	Transactions     []core.Transaction
	Categories       []core.Category
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		secret:    []byte("apitest-secret"),
		users:     map[string]*User{},
		google:    map[string]string{},
		nextID:    1,
		hits:      map[string]int{},
		overrides: map[string]override{},
		tokenTTL:  time.Hour,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API root clients should be configured with.
func (s *Server) BaseURL() string { return s.URL + Prefix }

// AddUser registers u and returns it with its assigned ID.
func (s *Server) AddUser(u User) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = core.ID(strconv.Itoa(s.nextID))
		s.nextID++
	}
	if u.Role == core.RoleNone {
		u.Role = core.RoleUser
	}
	stored := u
	s.users[u.Username] = &stored
	return u
}

// LinkGoogle makes idToken sign in as username through /auth/google.
func (s *Server) LinkGoogle(idToken, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.google[idToken] = username
}

// UpdateUser applies fn to the stored user.
func (s *Server) UpdateUser(username string, fn func(*User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[username]; ok {
		fn(u)
	}
}

// Override makes "METHOD /path" (path without the API prefix) answer with
// status and body until cleared with status 0.
func (s *Server) Override(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	if status == 0 {
		delete(s.overrides, key)
		return
	}
	s.overrides[key] = override{status: status, body: body}
}

// Hits reports how many requests "METHOD /path" received.
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+path]
}

// IssueToken mints a token for username valid for ttl. A negative ttl
// yields an already expired token.
func (s *Server) IssueToken(username string, ttl time.Duration) string {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("apitest: sign token: %v", err))
	}
	return signed
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+Prefix+"/auth/login", s.handleLogin)
	mux.HandleFunc("POST "+Prefix+"/auth/google", s.handleGoogle)
	mux.HandleFunc("POST "+Prefix+"/auth/register", s.handleRegister)
	mux.HandleFunc("GET "+Prefix+"/auth/verify", s.authed(func(w http.ResponseWriter, r *http.Request, u *User) {
		writeJSON(w, http.StatusOK, u.identity())
	}))
	mux.HandleFunc("POST "+Prefix+"/auth/forgot-password", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "If the account exists, a reset link was sent"})
	})
	mux.HandleFunc("GET "+Prefix+"/profile", s.authed(func(w http.ResponseWriter, r *http.Request, u *User) {
		writeJSON(w, http.StatusOK, profileOf(u))
	}))
	mux.HandleFunc("PUT "+Prefix+"/profile", s.authed(s.handleProfileUpdate))
	mux.HandleFunc("GET "+Prefix+"/analytics/dashboard", s.authed(func(w http.ResponseWriter, r *http.Request, _ *User) {
		writeJSON(w, http.StatusOK, s.Summary)
	}))
	mux.HandleFunc("GET "+Prefix+"/analytics/category-spending", s.authed(func(w http.ResponseWriter, r *http.Request, _ *User) {
		writeJSON(w, http.StatusOK, nonNil(s.CategorySpending))
	}))
	mux.HandleFunc("GET "+Prefix+"/analytics/monthly-trend", s.authed(func(w http.ResponseWriter, r *http.Request, _ *User) {
		writeJSON(w, http.StatusOK, nonNil(s.MonthlyTrend))
	}))
	mux.HandleFunc("GET "+Prefix+"/analytics/budget-status", s.authed(func(w http.ResponseWriter, r *http.Request, _ *User) {
		writeJSON(w, http.StatusOK, nonNil(s.BudgetStatuses))
	}))
	mux.HandleFunc("GET "+Prefix+"/transactions", s.authed(func(w http.ResponseWriter, r *http.Request, _ *User) {
		writeJSON(w, http.StatusOK, nonNil(s.Transactions))
	}))
	mux.HandleFunc("GET "+Prefix+"/transactions/search", s.authed(func(w http.ResponseWriter, r *http.Request, _ *User) {
		writeJSON(w, http.StatusOK, nonNil(s.Transactions))
	}))
	mux.HandleFunc("GET "+Prefix+"/categories", s.authed(func(w http.ResponseWriter, r *http.Request, _ *User) {
		writeJSON(w, http.StatusOK, nonNil(s.Categories))
	}))
	return s.intercept(mux)
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

// intercept counts hits and applies overrides before routing.
func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, Prefix)
		s.mu.Lock()
		s.hits[key]++
		ov, ok := s.overrides[key]
		s.mu.Unlock()
		if ok {
			w.WriteHeader(ov.status)
			w.Write([]byte(ov.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authed(h func(http.ResponseWriter, *http.Request, *User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := s.userFromRequest(r)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}
		h(w, r, u)
	}
}

func (s *Server) userFromRequest(r *http.Request) (*User, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return nil, errors.New("missing bearer token")
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[claims.Subject]
	if !ok || u.Blocked {
		return nil, errors.New("unknown user")
	}
	return u, nil
}

func (s *Server) respondAuth(w http.ResponseWriter, u *User, status int) {
	writeJSON(w, status, core.AuthResponse{
		Token:    s.IssueToken(u.Username, s.tokenTTL),
		Identity: u.identity(),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds core.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed request"})
		return
	}
	s.mu.Lock()
	u, ok := s.users[creds.Username]
	s.mu.Unlock()
	if !ok || u.Password != creds.Password {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Invalid username or password"))
		return
	}
	if u.Blocked {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("Your account has been blocked by an administrator"))
		return
	}
	s.respondAuth(w, u, http.StatusOK)
}

func (s *Server) handleGoogle(w http.ResponseWriter, r *http.Request) {
	var creds core.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed request"})
		return
	}
	s.mu.Lock()
	username, ok := s.google[creds.GoogleToken]
	u := s.users[username]
	s.mu.Unlock()
	if !ok || u == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Google authentication failed"})
		return
	}
	s.respondAuth(w, u, http.StatusOK)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg core.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed request"})
		return
	}
	s.mu.Lock()
	_, taken := s.users[reg.Username]
	s.mu.Unlock()
	if taken {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Username is already taken"})
		return
	}
	u := s.AddUser(User{
		Username:  reg.Username,
		Email:     reg.Email,
		Password:  reg.Password,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Country:   reg.Country,
	})
	s.respondAuth(w, &u, http.StatusCreated)
}

func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request, u *User) {
	var p core.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed request"})
		return
	}
	s.mu.Lock()
	u.Email = p.Email
	u.FirstName = p.FirstName
	u.LastName = p.LastName
	u.Country = p.Country
	out := profileOf(u)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func profileOf(u *User) core.Profile {
	return core.Profile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Country:   u.Country,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
