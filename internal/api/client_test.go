package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"exptrack/internal/core"
	"exptrack/internal/state"
)

func newTokens(t *testing.T, token string) *state.Tokens {
	t.Helper()
	tokens := state.NewTokens(state.NewMemoryStore())
	if token != "" {
		if err := tokens.SetToken(context.Background(), token); err != nil {
			t.Fatal(err)
		}
	}
	return tokens
}

func newTestClient(t *testing.T, h http.Handler, tokens *state.Tokens, opts ...func(*Options)) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	o := Options{BaseURL: srv.URL + "/expense-tracker-api", Tokens: tokens, CacheTTL: time.Minute}
	for _, fn := range opts {
		fn(&o)
	}
	c, err := New(o)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewValidatesOptions(t *testing.T) {
	tokens := newTokens(t, "")
	if _, err := New(Options{Tokens: tokens}); err == nil {
		t.Fatal("expected error without base URL")
	}
	if _, err := New(Options{BaseURL: "not a url", Tokens: tokens}); err == nil {
		t.Fatal("expected error for relative base URL")
	}
	if _, err := New(Options{BaseURL: "http://localhost:8086"}); err == nil {
		t.Fatal("expected error without token store")
	}
	c, err := New(Options{BaseURL: "http://localhost:8086/expense-tracker-api/", Tokens: tokens})
	if err != nil {
		t.Fatal(err)
	}
	if c.BaseURL() != "http://localhost:8086/expense-tracker-api" {
		t.Fatalf("BaseURL = %q", c.BaseURL())
	}
}

func TestBearerAttachedOnlyToProtectedPaths(t *testing.T) {
	seen := map[string]string{}
	var mu sync.Mutex
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.URL.Path] = r.Header.Get("Authorization")
		mu.Unlock()
		if r.Header.Get(HeaderRequestID) == "" {
			t.Errorf("missing request id on %s", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/expense-tracker-api/auth/login", "/expense-tracker-api/auth/google":
			w.Write([]byte(`{"token":"new","id":1,"role":"ROLE_USER"}`))
		default:
			w.Write([]byte(`[]`))
		}
	})
	c := newTestClient(t, h, newTokens(t, "stored"))
	ctx := context.Background()

	if _, err := c.Login(ctx, core.Credentials{Username: "alice", Password: "pw"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Login(ctx, core.Credentials{GoogleToken: "g"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Transactions().List(ctx, TransactionQuery{}); err != nil {
		t.Fatal(err)
	}

	if got := seen["/expense-tracker-api/auth/login"]; got != "" {
		t.Errorf("login carried Authorization %q", got)
	}
	if got := seen["/expense-tracker-api/auth/google"]; got != "" {
		t.Errorf("google login carried Authorization %q", got)
	}
	if got := seen["/expense-tracker-api/transactions"]; got != "Bearer stored" {
		t.Errorf("transactions Authorization = %q", got)
	}
}

func TestNoAuthorizationHeaderWithoutToken(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected Authorization header")
		}
		w.Write([]byte(`{}`))
	})
	c := newTestClient(t, h, newTokens(t, ""))
	if _, err := c.Profile().Get(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestUnauthorizedPurgesTokenAndNotifiesOnce(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		http.Error(w, "Token expired", http.StatusUnauthorized)
	})
	tokens := newTokens(t, "stale")
	var events atomic.Int32
	c := newTestClient(t, h, tokens, func(o *Options) {
		o.OnUnauthorized = func(UnauthorizedEvent) { events.Add(1) }
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Budgets().List(context.Background())
			if StatusOf(err) != http.StatusUnauthorized {
				t.Errorf("status = %d, err = %v", StatusOf(err), err)
			}
		}()
	}
	wg.Wait()

	if n := events.Load(); n != 1 {
		t.Fatalf("unauthorized events = %d, want 1", n)
	}
	if tok, _ := tokens.Token(context.Background()); tok != "" {
		t.Fatalf("token still present: %q", tok)
	}
}

func TestUnauthorizedWithoutTokenRaisesNoEvent(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Invalid username or password"))
	})
	called := false
	c := newTestClient(t, h, newTokens(t, ""), func(o *Options) {
		o.OnUnauthorized = func(UnauthorizedEvent) { called = true }
	})
	_, err := c.Login(context.Background(), core.Credentials{Username: "alice", Password: "wrong"})
	if ServerMessage(err) != "Invalid username or password" {
		t.Fatalf("message = %q", ServerMessage(err))
	}
	if called {
		t.Fatal("no token was held, no event expected")
	}
}

func TestErrorMessageExtraction(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"plain text", "Account blocked", "Account blocked"},
		{"json string", `"Username already exists"`, "Username already exists"},
		{"message field", `{"message":"Email taken"}`, "Email taken"},
		{"error field", `{"error":"Bad request"}`, "Bad request"},
		{"message wins", `{"error":"x","message":"y"}`, "y"},
		{"html page", "<html><body>502</body></html>", ""},
		{"empty", "", ""},
		{"object without text", `{"status":400}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := errorMessage([]byte(tc.body)); got != tc.want {
				t.Fatalf("errorMessage(%q) = %q, want %q", tc.body, got, tc.want)
			}
		})
	}
}

func TestTransportErrorsAreClassified(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})
	c := newTestClient(t, slow, newTokens(t, ""), func(o *Options) { o.Timeout = 50 * time.Millisecond })
	_, err := c.Categories().List(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if msg := UserMessage(err, "fallback"); msg != "The server took too long to respond" {
		t.Fatalf("UserMessage = %q", msg)
	}

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()
	dead, err := New(Options{BaseURL: base, Tokens: newTokens(t, "")})
	if err != nil {
		t.Fatal(err)
	}
	_, err = dead.Profile().Get(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if msg := UserMessage(err, "fallback"); msg != "Unable to reach the server" {
		t.Fatalf("UserMessage = %q", msg)
	}
	if msg := UserMessage(errors.New("decode"), "fallback"); msg != "fallback" {
		t.Fatalf("UserMessage = %q", msg)
	}
}

func TestCategoryListCachedUntilMutation(t *testing.T) {
	var lists atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/expense-tracker-api/categories":
			lists.Add(1)
			w.Write([]byte(`[{"id":1,"name":"Food","type":"EXPENSE"}]`))
		case r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":2,"name":"Rent"}`))
		}
	})
	c := newTestClient(t, h, newTokens(t, "tok"))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cats, err := c.Categories().List(ctx)
		if err != nil || len(cats) != 1 || cats[0].ID != "1" {
			t.Fatalf("List = %v, %v", cats, err)
		}
	}
	if lists.Load() != 1 {
		t.Fatalf("backend hit %d times, want 1", lists.Load())
	}

	if _, err := c.Categories().Create(ctx, core.Category{Name: "Rent"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Categories().List(ctx); err != nil {
		t.Fatal(err)
	}
	if lists.Load() != 2 {
		t.Fatalf("cache not invalidated after create, hits = %d", lists.Load())
	}

	if _, err := c.Categories().Create(ctx, core.Category{Name: " "}); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected local validation error, got %v", err)
	}
}

func TestAnalyticsSendsDateRange(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("startDate") != "2025-03-01" || q.Get("endDate") != "2025-03-17" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`{"totalIncome":100,"totalExpenses":40,"netAmount":60,"categorySpending":[["Food",40]],"monthlyTrend":[]}`))
	})
	c := newTestClient(t, h, newTokens(t, "tok"))
	r := core.CurrentMonth(time.Date(2025, 3, 17, 9, 0, 0, 0, time.UTC))
	sum, err := c.Analytics().Dashboard(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}
	if sum.NetAmount != 60 || len(sum.CategorySpending) != 1 {
		t.Fatalf("summary = %+v", sum)
	}

	bad := core.DateRange{Start: r.End, End: r.Start}
	if _, err := c.Analytics().Dashboard(context.Background(), bad); !errors.Is(err, core.ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestAdminChangeRoleAndSendEmail(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Path {
		case "/expense-tracker-api/admin/users/7/change-role":
			if r.Method != http.MethodPut || body["role"] != "ROLE_ADMIN" {
				t.Errorf("change-role %s body %v", r.Method, body)
			}
		case "/expense-tracker-api/admin/send-email":
			ids, _ := body["recipientIds"].([]any)
			if len(ids) != 2 || ids[0] != float64(3) {
				t.Errorf("recipients = %v", body["recipientIds"])
			}
			w.Write([]byte(`{"sentCount":2}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	c := newTestClient(t, h, newTokens(t, "tok"))
	ctx := context.Background()

	if err := c.Admin().ChangeRole(ctx, "7", core.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	res, err := c.Admin().SendEmail(ctx, core.EmailBroadcast{RecipientIDs: []core.ID{"3", "4"}, Subject: "Hi", Message: "Hello"})
	if err != nil || res.SentCount != 2 {
		t.Fatalf("SendEmail = %+v, %v", res, err)
	}
	if _, err := c.Admin().SendEmail(ctx, core.EmailBroadcast{Subject: "Hi", Message: "x"}); !errors.Is(err, core.ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
}

func TestRecurringActions(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		switch r.URL.Path {
		case "/expense-tracker-api/recurring-transactions/5/toggle":
			w.Write([]byte(`{"id":5,"type":"EXPENSE","amount":10,"frequency":"MONTHLY","active":false}`))
		case "/expense-tracker-api/recurring-transactions/5/execute":
			w.Write([]byte(`{"id":99,"type":"EXPENSE","amount":10}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	c := newTestClient(t, h, newTokens(t, "tok"))
	rt, err := c.Recurring().Toggle(context.Background(), "5")
	if err != nil || rt.Active {
		t.Fatalf("Toggle = %+v, %v", rt, err)
	}
	tx, err := c.Recurring().Execute(context.Background(), "5")
	if err != nil || tx.ID != "99" {
		t.Fatalf("Execute = %+v, %v", tx, err)
	}
}
