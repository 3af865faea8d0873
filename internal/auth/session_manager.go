package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mytube/backend/internal/logging"
	"github.com/mytube/backend/internal/models"
)

// Status describes where the session sits in its lifecycle.
type Status string

const (
	StatusUninitialized   Status = "uninitialized"
	StatusChecking        Status = "checking"
	StatusAuthenticated   Status = "authenticated"
	StatusRefreshing      Status = "refreshing"
	StatusUnauthenticated Status = "unauthenticated"
)

// TokenExchanger is the relay surface the manager depends on.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code string) (TokenGrant, error)
	RefreshToken(ctx context.Context, refreshToken string) (TokenGrant, error)
}

// IdentityProvider is the identity-provider surface the manager depends on.
type IdentityProvider interface {
	AuthorizeURL(state string) string
	FetchUserInfo(ctx context.Context, accessToken string) (models.AuthUser, error)
	Revoke(ctx context.Context, accessToken string) error
}

// Manager orchestrates the OAuth2 authorization-code session: login redirect,
// callback verification, code exchange, silent refresh, and logout. It owns
// the token store and is the single writer of session state.
type Manager struct {
	store    TokenStore
	relay    TokenExchanger
	provider IdentityProvider
	nowFunc  func() time.Time

	// refreshGroup collapses concurrent expired-token detections into one
	// in-flight exchange.
	refreshGroup singleflight.Group

	mu      sync.Mutex
	status  Status
	tokens  models.AuthTokens
	user    models.AuthUser
	hasUser bool
}

// NewManager constructs a session manager over the provided collaborators.
func NewManager(store TokenStore, relay TokenExchanger, provider IdentityProvider) *Manager {
	if store == nil {
		panic("auth: token store must not be nil")
	}
	if relay == nil {
		panic("auth: token exchanger must not be nil")
	}
	if provider == nil {
		panic("auth: identity provider must not be nil")
	}
	return &Manager{
		store:    store,
		relay:    relay,
		provider: provider,
		nowFunc:  time.Now,
		status:   StatusUninitialized,
	}
}

// Initialize restores the session from the token store at process start.
// It never propagates errors; every failure degrades to a state transition.
// Valid tokens restore an authenticated session (the user-info fetch is
// best-effort), expired tokens trigger one silent refresh, and anything else
// leaves the session unauthenticated.
func (m *Manager) Initialize(ctx context.Context) {
	logger := logging.FromContext(ctx)
	m.setStatus(StatusChecking)

	tokens, err := m.store.LoadTokens(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			logger.Warn("failed to read stored session", "error", err)
		}
		m.setStatus(StatusUnauthenticated)
		return
	}

	if tokens.Valid(m.now()) {
		m.mu.Lock()
		m.tokens = tokens
		m.status = StatusAuthenticated
		m.mu.Unlock()
		m.loadUser(ctx, tokens.AccessToken)
		return
	}

	m.mu.Lock()
	m.tokens = tokens
	m.mu.Unlock()

	if err := m.Refresh(ctx); err != nil {
		logger.Info("stored session could not be refreshed", "error", err)
		return
	}

	m.mu.Lock()
	accessToken := m.tokens.AccessToken
	m.mu.Unlock()
	m.loadUser(ctx, accessToken)
}

// LoginURL generates and persists a fresh anti-CSRF state nonce and returns
// the provider's authorization URL. The caller performs the redirect.
func (m *Manager) LoginURL(ctx context.Context) (string, error) {
	state, err := randomState()
	if err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	if err := m.store.SaveState(ctx, state); err != nil {
		return "", fmt.Errorf("persist oauth state: %w", err)
	}
	return m.provider.AuthorizeURL(state), nil
}

// HandleCallback completes the authorization-code flow. A state value that
// does not exactly match the persisted pending state fails hard with
// ErrStateMismatch. Any failure after the state check tears the session down
// before returning so it never ends up half-authenticated.
func (m *Manager) HandleCallback(ctx context.Context, code, state string) error {
	pending, err := m.store.LoadState(ctx)
	if err != nil || pending == "" || state != pending {
		return ErrStateMismatch
	}

	grant, err := m.relay.ExchangeCode(ctx, code)
	if err != nil {
		m.clearSession(ctx)
		return err
	}

	tokens := m.grantToTokens(grant, grant.RefreshToken)
	if err := m.store.SaveTokens(ctx, tokens); err != nil {
		m.clearSession(ctx)
		return fmt.Errorf("persist session tokens: %w", err)
	}

	m.mu.Lock()
	m.tokens = tokens
	m.status = StatusAuthenticated
	m.mu.Unlock()

	m.loadUser(ctx, tokens.AccessToken)

	if err := m.store.ClearState(ctx); err != nil {
		logging.FromContext(ctx).Warn("failed to clear pending oauth state", "error", err)
	}
	return nil
}

// Refresh exchanges the held refresh token for a new access token. The
// original refresh token is preserved; the provider does not rotate it on
// this flow. A failed refresh is terminal: the whole session is cleared.
// Concurrent callers collapse into a single in-flight exchange.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		return nil, m.refreshOnce(ctx)
	})
	return err
}

func (m *Manager) refreshOnce(ctx context.Context) error {
	m.mu.Lock()
	refreshToken := m.tokens.RefreshToken
	if refreshToken == "" {
		m.mu.Unlock()
		m.clearSession(ctx)
		return ErrNoRefreshToken
	}
	m.status = StatusRefreshing
	m.mu.Unlock()

	grant, err := m.relay.RefreshToken(ctx, refreshToken)
	if err != nil {
		m.clearSession(ctx)
		return err
	}

	tokens := m.grantToTokens(grant, refreshToken)
	if err := m.store.SaveTokens(ctx, tokens); err != nil {
		m.clearSession(ctx)
		return fmt.Errorf("persist refreshed tokens: %w", err)
	}

	m.mu.Lock()
	m.tokens = tokens
	m.status = StatusAuthenticated
	m.mu.Unlock()
	return nil
}

// Logout clears the session locally and revokes the access token at the
// provider. Revocation is best-effort; local teardown always succeeds.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	accessToken := m.tokens.AccessToken
	m.mu.Unlock()

	m.clearSession(ctx)

	if accessToken == "" {
		return
	}
	if err := m.provider.Revoke(ctx, accessToken); err != nil {
		logging.FromContext(ctx).Warn("token revocation failed", "error", err)
	}
}

// AccessToken implements the API client's token source. An expired token
// triggers a silent refresh before the call proceeds.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	tokens := m.tokens
	m.mu.Unlock()

	if tokens.AccessToken == "" {
		return "", ErrNotAuthenticated
	}
	if tokens.Valid(m.now()) {
		return tokens.AccessToken, nil
	}

	if err := m.Refresh(ctx); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens.AccessToken == "" {
		return "", ErrNotAuthenticated
	}
	return m.tokens.AccessToken, nil
}

// Status returns the current lifecycle state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Tokens returns a copy of the held token pair.
func (m *Manager) Tokens() models.AuthTokens {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens
}

// User returns the signed-in user when the user-info fetch has succeeded.
func (m *Manager) User() (models.AuthUser, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user, m.hasUser
}

// IsAuthenticated reports whether the session currently holds credentials.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == StatusAuthenticated && m.tokens.AccessToken != ""
}

// loadUser fetches the user profile. Failure leaves the session in a
// degraded authenticated state; a later restart retries.
func (m *Manager) loadUser(ctx context.Context, accessToken string) {
	user, err := m.provider.FetchUserInfo(ctx, accessToken)
	if err != nil {
		logging.FromContext(ctx).Warn("failed to fetch user info", "error", err)
		return
	}
	m.mu.Lock()
	m.user = user
	m.hasUser = true
	m.mu.Unlock()
}

func (m *Manager) clearSession(ctx context.Context) {
	m.mu.Lock()
	m.tokens = models.AuthTokens{}
	m.user = models.AuthUser{}
	m.hasUser = false
	m.status = StatusUnauthenticated
	m.mu.Unlock()

	logger := logging.FromContext(ctx)
	if err := m.store.ClearTokens(ctx); err != nil {
		logger.Warn("failed to clear stored tokens", "error", err)
	}
	if err := m.store.ClearState(ctx); err != nil {
		logger.Warn("failed to clear pending oauth state", "error", err)
	}
}

func (m *Manager) grantToTokens(grant TokenGrant, refreshToken string) models.AuthTokens {
	return models.AuthTokens{
		AccessToken:  grant.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    m.now().Add(time.Duration(grant.ExpiresIn) * time.Second),
	}
}

func (m *Manager) setStatus(status Status) {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

func (m *Manager) now() time.Time {
	if m.nowFunc != nil {
		return m.nowFunc()
	}
	return time.Now()
}

func randomState() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
