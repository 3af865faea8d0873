package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mytube/backend/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		AppPort:            8080,
		TokenStorePath:     filepath.Join(t.TempDir(), "session.json"),
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		GoogleRedirectURI:  "http://localhost:8080/auth/callback",
		YouTubeBaseURL:     "https://www.googleapis.com/youtube/v3",
		RelayBaseURL:       "http://localhost:8080/api/auth",
		ResponseCacheTTL:   5 * time.Minute,
		HTTPTimeout:        30 * time.Second,
	}
}

func TestBuildDependenciesWithoutDatabase(t *testing.T) {
	deps, sessions, err := buildDependencies(nil, testConfig(t))
	if err != nil {
		t.Fatalf("build dependencies: %v", err)
	}

	if sessions == nil {
		t.Fatal("expected a session manager")
	}
	if deps.Sessions == nil || deps.Browser == nil {
		t.Fatal("expected handler dependencies to be wired")
	}
	if deps.Relay.ClientID != "client-id" || deps.Relay.ClientSecret != "client-secret" {
		t.Fatalf("relay credentials not wired: %+v", deps.Relay)
	}
	if deps.AuthLimiter == nil {
		t.Fatal("expected an auth rate limiter")
	}
	if deps.Retry.MaxAttempts != 3 {
		t.Fatalf("unexpected retry policy: %+v", deps.Retry)
	}
}

func TestBuildDependenciesRejectsBadSealKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.TokenSealKey = "not-base64!"

	if _, _, err := buildDependencies(nil, cfg); err == nil {
		t.Fatal("expected error for invalid seal key")
	}
}
