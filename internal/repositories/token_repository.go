package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mytube/backend/internal/auth"
	"github.com/mytube/backend/internal/db"
	"github.com/mytube/backend/internal/models"
)

// PostgresTokenStore persists session state to PostgreSQL as a small
// key-value table, keeping the same storage layout as the file store
// (session.tokens and session.pendingOAuthState keys). It backs server
// deployments where the session must survive restarts across hosts.
type PostgresTokenStore struct {
	pool db.Pool
}

// NewPostgresTokenStore constructs a token store backed by PostgreSQL.
func NewPostgresTokenStore(pool db.Pool) *PostgresTokenStore {
	return &PostgresTokenStore{pool: pool}
}

func (s *PostgresTokenStore) SaveTokens(ctx context.Context, tokens models.AuthTokens) error {
	raw, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}
	return s.put(ctx, auth.KeyTokens, string(raw))
}

func (s *PostgresTokenStore) LoadTokens(ctx context.Context) (models.AuthTokens, error) {
	raw, err := s.get(ctx, auth.KeyTokens)
	if err != nil {
		return models.AuthTokens{}, err
	}

	var tokens models.AuthTokens
	if err := json.Unmarshal([]byte(raw), &tokens); err != nil {
		return models.AuthTokens{}, fmt.Errorf("decode tokens: %w", err)
	}
	return tokens, nil
}

func (s *PostgresTokenStore) ClearTokens(ctx context.Context) error {
	return s.delete(ctx, auth.KeyTokens)
}

func (s *PostgresTokenStore) SaveState(ctx context.Context, state string) error {
	return s.put(ctx, auth.KeyPendingState, state)
}

func (s *PostgresTokenStore) LoadState(ctx context.Context) (string, error) {
	return s.get(ctx, auth.KeyPendingState)
}

func (s *PostgresTokenStore) ClearState(ctx context.Context) error {
	return s.delete(ctx, auth.KeyPendingState)
}

func (s *PostgresTokenStore) put(ctx context.Context, key, value string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO session_store (key, value, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (key)
        DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
    `, key, value)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *PostgresTokenStore) get(ctx context.Context, key string) (string, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var value string
	row := conn.QueryRow(ctx, `SELECT value FROM session_store WHERE key = $1`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", auth.ErrNoSession
		}
		return "", fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresTokenStore) delete(ctx context.Context, key string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `DELETE FROM session_store WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
