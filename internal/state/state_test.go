package state

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"exptrack/internal/config"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	res, err := Open(&config.Config{StateBackend: "sqlite", SQLiteDBPath: filepath.Join(t.TempDir(), "state.db")}, nil)
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	t.Cleanup(func() { res.Cleanup() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
		"sqlite": res.Store,
	}
}

func TestTokensLifecycle(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tokens := NewTokens(store)

			if tok, err := tokens.Token(ctx); err != nil || tok != "" {
				t.Fatalf("fresh Token = %q, %v", tok, err)
			}
			if removed, err := tokens.ClearToken(ctx); err != nil || removed {
				t.Fatalf("ClearToken on empty store = %v, %v", removed, err)
			}

			if err := tokens.SetToken(ctx, "jwt-1"); err != nil {
				t.Fatal(err)
			}
			if err := tokens.RememberLogin(ctx, "alice@example.com"); err != nil {
				t.Fatal(err)
			}
			if tok, _ := tokens.Token(ctx); tok != "jwt-1" {
				t.Fatalf("Token = %q", tok)
			}

			removed, err := tokens.ClearToken(ctx)
			if err != nil || !removed {
				t.Fatalf("ClearToken = %v, %v", removed, err)
			}
			if removed, _ := tokens.ClearToken(ctx); removed {
				t.Fatal("second ClearToken must report nothing removed")
			}
			if email, _ := tokens.LastLoginEmail(ctx); email != "alice@example.com" {
				t.Fatalf("recovery email lost on clear: %q", email)
			}
		})
	}
}

func TestRecoveryIdentifierPrefersUsername(t *testing.T) {
	ctx := context.Background()
	tokens := NewTokens(NewMemoryStore())

	if id, _ := tokens.RecoveryIdentifier(ctx); id != "" {
		t.Fatalf("empty store identifier = %q", id)
	}
	_ = tokens.RememberLogin(ctx, "alice@example.com")
	if id, _ := tokens.RecoveryIdentifier(ctx); id != "alice@example.com" {
		t.Fatalf("identifier = %q, want email", id)
	}
	_ = tokens.RememberUsername(ctx, "alice")
	if id, _ := tokens.RecoveryIdentifier(ctx); id != "alice" {
		t.Fatalf("identifier = %q, want username", id)
	}
	_ = tokens.RememberUsername(ctx, "   ")
	if id, _ := tokens.RecoveryIdentifier(ctx); id != "alice" {
		t.Fatalf("blank username must not overwrite, got %q", id)
	}
}

func TestClearTokenReportsRemovalOnce(t *testing.T) {
	ctx := context.Background()
	tokens := NewTokens(NewMemoryStore())
	_ = tokens.SetToken(ctx, "jwt")

	var removed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := tokens.ClearToken(ctx); ok {
				removed.Add(1)
			}
		}()
	}
	wg.Wait()
	if removed.Load() != 1 {
		t.Fatalf("removal reported %d times", removed.Load())
	}
}

func TestClearTokenIfKeepsReplacedToken(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			tokens := NewTokens(store)
			_ = tokens.SetToken(ctx, "newer")

			if ok, err := tokens.ClearTokenIf(ctx, "older"); err != nil || ok {
				t.Fatalf("ClearTokenIf(older) = %v, %v", ok, err)
			}
			if v, _ := tokens.Token(ctx); v != "newer" {
				t.Fatalf("token = %q, want newer", v)
			}
			if ok, err := tokens.ClearTokenIf(ctx, "newer"); err != nil || !ok {
				t.Fatalf("ClearTokenIf(newer) = %v, %v", ok, err)
			}
			if v, _ := tokens.Token(ctx); v != "" {
				t.Fatalf("token = %q after clear", v)
			}
		})
	}
}

func TestFileStorePermissionsAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := fs.Set(ctx, KeyToken, "abc"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("state file mode = %v, want 0600", perm)
	}

	again, _ := NewFileStore(path)
	if v, ok, err := again.Get(ctx, KeyToken); err != nil || !ok || v != "abc" {
		t.Fatalf("reloaded Get = %q %v %v", v, ok, err)
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	fs, _ := NewFileStore(path)
	if _, _, err := fs.Get(context.Background(), KeyToken); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	if _, err := Open(&config.Config{StateBackend: "etcd"}, nil); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := Open(nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if !FileBackend.IsValid() || BackendType("x").IsValid() {
		t.Fatal("IsValid mismatch")
	}
}
