package config

import (
	"os"
	"testing"
	"time"
)

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	original, existed := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset %s: %v", key, err)
	}
	t.Cleanup(func() {
		if !existed {
			_ = os.Unsetenv(key)
			return
		}
		_ = os.Setenv(key, original)
	})
}

func TestPreviewDefaultsApplyWithoutEnv(t *testing.T) {
	unsetEnv(t, "PREVIEW_TIMEOUT")
	unsetEnv(t, "PREVIEW_CACHE_TTL")
	unsetEnv(t, "PREVIEW_DEBOUNCE")

	cfg := New()
	if cfg.PreviewTimeout != 10*time.Second {
		t.Fatalf("expected 10s preview timeout, got %v", cfg.PreviewTimeout)
	}
	if cfg.PreviewCacheTTL != 5*time.Minute {
		t.Fatalf("expected 5m preview cache TTL, got %v", cfg.PreviewCacheTTL)
	}
	if cfg.PreviewDebounce != 500*time.Millisecond {
		t.Fatalf("expected 500ms preview debounce, got %v", cfg.PreviewDebounce)
	}
}

func TestPreviewTimeoutOverride(t *testing.T) {
	t.Setenv("PREVIEW_TIMEOUT", "3s")

	cfg := New()
	if cfg.PreviewTimeout != 3*time.Second {
		t.Fatalf("expected 3s preview timeout, got %v", cfg.PreviewTimeout)
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("PREVIEW_TIMEOUT", "not-a-duration")

	cfg := New()
	if cfg.PreviewTimeout != 10*time.Second {
		t.Fatalf("expected fallback to 10s, got %v", cfg.PreviewTimeout)
	}
}

func TestMaxSessionsParsing(t *testing.T) {
	unsetEnv(t, "MAX_SESSIONS")
	if cfg := New(); cfg.MaxSessions != 100 {
		t.Fatalf("expected default of 100 sessions, got %d", cfg.MaxSessions)
	}

	t.Setenv("MAX_SESSIONS", "25")
	if cfg := New(); cfg.MaxSessions != 25 {
		t.Fatalf("expected 25 sessions, got %d", cfg.MaxSessions)
	}

	t.Setenv("MAX_SESSIONS", "not-a-number")
	if cfg := New(); cfg.MaxSessions != 100 {
		t.Fatalf("expected fallback to 100, got %d", cfg.MaxSessions)
	}
}

func TestCORSOriginsSplit(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg := New()
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %d", len(cfg.CORSOrigins))
	}
	if cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected second origin: %q", cfg.CORSOrigins[1])
	}
}
