package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("API_URL", "ftp://example.com")
	t.Setenv("STATE_BACKEND", "memory")
	if _, err := LoadAndValidateConfig(); err == nil || !strings.Contains(err.Error(), "configuration validation failed") {
		t.Fatalf("err = %v", err)
	}

	t.Setenv("API_URL", "https://api.example.com/expense-tracker-api/")
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != "https://api.example.com/expense-tracker-api" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
}

func TestOpenState(t *testing.T) {
	t.Setenv("STATE_BACKEND", "file")
	t.Setenv("STATE_FILE", filepath.Join(t.TempDir(), "state", "state.json"))
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		t.Fatal(err)
	}
	logger := SetupLogger("error")

	tokens, cleanup, err := OpenState(cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	ctx := context.Background()
	if err := tokens.SetToken(ctx, "abc"); err != nil {
		t.Fatal(err)
	}

	again, cleanupAgain, err := OpenState(cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanupAgain()
	if tok, _ := again.Token(ctx); tok != "abc" {
		t.Fatalf("token not persisted: %q", tok)
	}
}

func TestGracefulShutdownCancel(t *testing.T) {
	ctx, cancel := GracefulShutdown(SetupLogger("error"), 0, nil)
	cancel()
	<-ctx.Done()
}
