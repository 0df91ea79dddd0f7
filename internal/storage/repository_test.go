package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "exptrack.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestSQLiteRepositoryRoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	if _, ok, err := repo.Get(ctx, "token"); err != nil || ok {
		t.Fatalf("empty repo Get = ok %v err %v", ok, err)
	}
	if err := repo.Set(ctx, "token", "abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := repo.Set(ctx, "token", "def"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, ok, err := repo.Get(ctx, "token")
	if err != nil || !ok || v != "def" {
		t.Fatalf("Get = %q %v %v", v, ok, err)
	}

	if err := repo.Set(ctx, "lastUsername", "alice"); err != nil {
		t.Fatal(err)
	}
	keys, err := repo.Keys(ctx)
	if err != nil || len(keys) != 2 || keys[0] != "lastUsername" || keys[1] != "token" {
		t.Fatalf("Keys = %v, %v", keys, err)
	}

	if err := repo.Delete(ctx, "token"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "token"); err != nil {
		t.Fatalf("Delete missing key: %v", err)
	}
	if _, ok, _ := repo.Get(ctx, "token"); ok {
		t.Fatal("token still present after delete")
	}
}

func TestSQLiteRepositoryPersistsAcrossReopen(t *testing.T) {
	repo, path := newTestRepo(t)
	ctx := context.Background()
	if err := repo.Set(ctx, "lastLoginEmail", "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	repo.Close()

	reopened, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	v, ok, err := reopened.Get(ctx, "lastLoginEmail")
	if err != nil || !ok || v != "alice@example.com" {
		t.Fatalf("after reopen Get = %q %v %v", v, ok, err)
	}

	version, dirty, err := SchemaVersion(path)
	if err != nil || dirty || version != 1 {
		t.Fatalf("SchemaVersion = %d dirty=%v err=%v", version, dirty, err)
	}
}
