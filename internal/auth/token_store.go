package auth

import (
	"context"
	"sync"

	"github.com/mytube/backend/internal/models"
)

// Storage keys, mirrored across every TokenStore implementation.
const (
	KeyTokens       = "session.tokens"
	KeyPendingState = "session.pendingOAuthState"
)

// TokenStore is the durable representation of session state: the current
// token pair plus the pending OAuth state nonce. Load operations return
// ErrNoSession when nothing is stored.
type TokenStore interface {
	SaveTokens(ctx context.Context, tokens models.AuthTokens) error
	LoadTokens(ctx context.Context) (models.AuthTokens, error)
	ClearTokens(ctx context.Context) error

	SaveState(ctx context.Context, state string) error
	LoadState(ctx context.Context) (string, error)
	ClearState(ctx context.Context) error
}

// MemoryStore keeps session state in process memory. Used in tests and for
// throwaway sessions.
type MemoryStore struct {
	mu        sync.Mutex
	tokens    models.AuthTokens
	hasTokens bool
	state     string
	hasState  bool
}

// NewMemoryStore constructs an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveTokens(_ context.Context, tokens models.AuthTokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
	s.hasTokens = true
	return nil
}

func (s *MemoryStore) LoadTokens(context.Context) (models.AuthTokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasTokens {
		return models.AuthTokens{}, ErrNoSession
	}
	return s.tokens, nil
}

func (s *MemoryStore) ClearTokens(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = models.AuthTokens{}
	s.hasTokens = false
	return nil
}

func (s *MemoryStore) SaveState(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.hasState = true
	return nil
}

func (s *MemoryStore) LoadState(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasState {
		return "", ErrNoSession
	}
	return s.state, nil
}

func (s *MemoryStore) ClearState(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = ""
	s.hasState = false
	return nil
}
