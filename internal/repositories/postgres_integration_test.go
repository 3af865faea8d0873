package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mytube/backend/internal/auth"
	"github.com/mytube/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresTokenStore_SaveLoadAndClearTokens(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	store := NewPostgresTokenStore(testPool)

	if _, err := store.LoadTokens(ctx); !errors.Is(err, auth.ErrNoSession) {
		t.Fatalf("expected ErrNoSession on empty store, got %v", err)
	}

	tokens := models.AuthTokens{
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
		ExpiresAt:    time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond),
	}

	if err := store.SaveTokens(ctx, tokens); err != nil {
		t.Fatalf("save tokens: %v", err)
	}

	loaded, err := store.LoadTokens(ctx)
	if err != nil {
		t.Fatalf("load tokens: %v", err)
	}
	if loaded.AccessToken != tokens.AccessToken || loaded.RefreshToken != tokens.RefreshToken {
		t.Fatalf("unexpected tokens loaded: %+v", loaded)
	}
	if !timesClose(loaded.ExpiresAt, tokens.ExpiresAt, time.Millisecond) {
		t.Fatalf("expected expiry %v, got %v", tokens.ExpiresAt, loaded.ExpiresAt)
	}

	// A second save replaces the stored pair in place.
	rotated := tokens
	rotated.AccessToken = uuid.NewString()
	if err := store.SaveTokens(ctx, rotated); err != nil {
		t.Fatalf("rotate tokens: %v", err)
	}

	loaded, err = store.LoadTokens(ctx)
	if err != nil {
		t.Fatalf("load rotated tokens: %v", err)
	}
	if loaded.AccessToken != rotated.AccessToken || loaded.RefreshToken != tokens.RefreshToken {
		t.Fatalf("expected rotated access token with preserved refresh token, got %+v", loaded)
	}

	if err := store.ClearTokens(ctx); err != nil {
		t.Fatalf("clear tokens: %v", err)
	}

	if _, err := store.LoadTokens(ctx); !errors.Is(err, auth.ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}

	if err := store.ClearTokens(ctx); err != nil {
		t.Fatalf("clearing an empty store must not fail, got %v", err)
	}
}

func TestPostgresTokenStore_PendingState(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	store := NewPostgresTokenStore(testPool)

	if _, err := store.LoadState(ctx); !errors.Is(err, auth.ErrNoSession) {
		t.Fatalf("expected ErrNoSession on empty store, got %v", err)
	}

	state := uuid.NewString()
	if err := store.SaveState(ctx, state); err != nil {
		t.Fatalf("save state: %v", err)
	}

	loaded, err := store.LoadState(ctx)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if loaded != state {
		t.Fatalf("expected state %q, got %q", state, loaded)
	}

	// A fresh login overwrites any stale pending nonce.
	replacement := uuid.NewString()
	if err := store.SaveState(ctx, replacement); err != nil {
		t.Fatalf("replace state: %v", err)
	}
	if loaded, err = store.LoadState(ctx); err != nil || loaded != replacement {
		t.Fatalf("expected replacement state, got %q err=%v", loaded, err)
	}

	if err := store.ClearState(ctx); err != nil {
		t.Fatalf("clear state: %v", err)
	}
	if _, err := store.LoadState(ctx); !errors.Is(err, auth.ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
}

func TestPostgresTokenStore_TokensAndStateAreIndependent(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	store := NewPostgresTokenStore(testPool)

	tokens := models.AuthTokens{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().UTC().Add(time.Hour)}
	if err := store.SaveTokens(ctx, tokens); err != nil {
		t.Fatalf("save tokens: %v", err)
	}
	if err := store.SaveState(ctx, "pending"); err != nil {
		t.Fatalf("save state: %v", err)
	}

	if err := store.ClearState(ctx); err != nil {
		t.Fatalf("clear state: %v", err)
	}

	if _, err := store.LoadTokens(ctx); err != nil {
		t.Fatalf("tokens must survive a state clear, got %v", err)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE session_store"); err != nil {
		t.Fatalf("truncate session store: %v", err)
	}
}

func timesClose(a, b time.Time, delta time.Duration) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= delta
}
