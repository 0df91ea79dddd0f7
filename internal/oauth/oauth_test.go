package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func newTokenServer(t *testing.T, idToken string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "auth-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		body := map[string]any{"access_token": "access", "token_type": "Bearer", "expires_in": 3600}
		if idToken != "" {
			body["id_token"] = idToken
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth", TokenURL: tokenURL},
		Scopes:       Scopes,
	}
}

// browser simulates the user approving consent by calling the redirect
// with the given query, mutated by edit.
func browser(t *testing.T, edit func(q url.Values)) func(string) {
	return func(authURL string) {
		u, err := url.Parse(authURL)
		if err != nil {
			t.Error(err)
			return
		}
		redirect := u.Query().Get("redirect_uri")
		q := url.Values{"code": {"auth-code"}, "state": {u.Query().Get("state")}}
		if edit != nil {
			edit(q)
		}
		go func() {
			resp, err := http.Get(redirect + "?" + q.Encode())
			if err != nil {
				t.Error(err)
				return
			}
			resp.Body.Close()
		}()
	}
}

func TestIDToken(t *testing.T) {
	tokens := newTokenServer(t, "google-id-token")
	flow := NewFlow(testConfig(tokens.URL), WithPort(0), WithPrompt(browser(t, nil)))

	got, err := flow.IDToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != "google-id-token" {
		t.Fatalf("id token = %q", got)
	}
}

func TestIDTokenMissing(t *testing.T) {
	tokens := newTokenServer(t, "")
	flow := NewFlow(testConfig(tokens.URL), WithPort(0), WithPrompt(browser(t, nil)))
	if _, err := flow.IDToken(context.Background()); !errors.Is(err, ErrNoIDToken) {
		t.Fatalf("err = %v", err)
	}
}

func TestIDTokenRejectsForgedState(t *testing.T) {
	tokens := newTokenServer(t, "google-id-token")
	flow := NewFlow(testConfig(tokens.URL), WithPort(0), WithPrompt(browser(t, func(q url.Values) {
		q.Set("state", "forged")
	})))
	if _, err := flow.IDToken(context.Background()); !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("err = %v", err)
	}
}

func TestIDTokenDenied(t *testing.T) {
	tokens := newTokenServer(t, "google-id-token")
	flow := NewFlow(testConfig(tokens.URL), WithPort(0), WithPrompt(browser(t, func(q url.Values) {
		q.Del("code")
		q.Set("error", "access_denied")
	})))
	_, err := flow.IDToken(context.Background())
	if !errors.Is(err, ErrDenied) || !strings.Contains(err.Error(), "access_denied") {
		t.Fatalf("err = %v", err)
	}
}

func TestIDTokenTimeout(t *testing.T) {
	flow := NewFlow(testConfig("http://127.0.0.1:1/token"), WithPort(0), WithTimeout(30*time.Millisecond))
	if _, err := flow.IDToken(context.Background()); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v", err)
	}
}

func TestPromptCarriesRedirectAndScopes(t *testing.T) {
	var seen string
	flow := NewFlow(testConfig("http://127.0.0.1:1/token"), WithPort(0), WithTimeout(10*time.Millisecond),
		WithPrompt(func(u string) { seen = u }))
	flow.IDToken(context.Background())

	u, err := url.Parse(seen)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if !strings.HasPrefix(q.Get("redirect_uri"), "http://localhost:") || !strings.HasSuffix(q.Get("redirect_uri"), CallbackPath) {
		t.Fatalf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if q.Get("scope") != "openid email profile" || q.Get("state") == "" {
		t.Fatalf("query = %v", q)
	}
}

func TestConfigFromJSON(t *testing.T) {
	client := `{"installed":{"client_id":"id","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`
	cfg, err := ConfigFromJSON([]byte(client))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ClientID != "id" || len(cfg.Scopes) != 3 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if _, err := ConfigFromJSON([]byte("not json")); err == nil {
		t.Fatal("expected error")
	}
}
