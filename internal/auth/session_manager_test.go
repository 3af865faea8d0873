package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mytube/backend/internal/models"
)

type fakeRelay struct {
	mu sync.Mutex

	exchangeGrant TokenGrant
	exchangeErr   error
	exchangeCalls int

	refreshGrant TokenGrant
	refreshErr   error
	refreshCalls atomic.Int32
	refreshDelay time.Duration
}

func (f *fakeRelay) ExchangeCode(_ context.Context, code string) (TokenGrant, error) {
	f.mu.Lock()
	f.exchangeCalls++
	f.mu.Unlock()
	if f.exchangeErr != nil {
		return TokenGrant{}, f.exchangeErr
	}
	return f.exchangeGrant, nil
}

func (f *fakeRelay) RefreshToken(_ context.Context, refreshToken string) (TokenGrant, error) {
	f.refreshCalls.Add(1)
	if f.refreshDelay > 0 {
		time.Sleep(f.refreshDelay)
	}
	if f.refreshErr != nil {
		return TokenGrant{}, f.refreshErr
	}
	return f.refreshGrant, nil
}

type fakeProvider struct {
	user      models.AuthUser
	userErr   error
	revokeErr error

	mu      sync.Mutex
	revoked []string
}

func (f *fakeProvider) AuthorizeURL(state string) string {
	return "https://provider.example/authorize?state=" + state
}

func (f *fakeProvider) FetchUserInfo(context.Context, string) (models.AuthUser, error) {
	if f.userErr != nil {
		return models.AuthUser{}, f.userErr
	}
	return f.user, nil
}

func (f *fakeProvider) Revoke(_ context.Context, accessToken string) error {
	f.mu.Lock()
	f.revoked = append(f.revoked, accessToken)
	f.mu.Unlock()
	return f.revokeErr
}

func newTestManager(store TokenStore, relay *fakeRelay, provider *fakeProvider) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	if relay == nil {
		relay = &fakeRelay{}
	}
	if provider == nil {
		provider = &fakeProvider{}
	}
	return NewManager(store, relay, provider)
}

func TestLoginURLPersistsState(t *testing.T) {
	store := NewMemoryStore()
	manager := newTestManager(store, nil, &fakeProvider{})

	target, err := manager.LoginURL(context.Background())
	if err != nil {
		t.Fatalf("login url: %v", err)
	}

	state, err := store.LoadState(context.Background())
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state == "" {
		t.Fatal("expected non-empty state")
	}
	if want := "https://provider.example/authorize?state=" + state; target != want {
		t.Fatalf("unexpected authorize url: got %q want %q", target, want)
	}
}

func TestHandleCallbackStateMismatch(t *testing.T) {
	store := NewMemoryStore()
	relay := &fakeRelay{}
	manager := newTestManager(store, relay, nil)

	ctx := context.Background()
	if err := store.SaveState(ctx, "expected-state"); err != nil {
		t.Fatalf("save state: %v", err)
	}

	if err := manager.HandleCallback(ctx, "code", "wrong-state"); !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch got %v", err)
	}
	if relay.exchangeCalls != 0 {
		t.Fatal("exchange must not run on state mismatch")
	}
}

func TestHandleCallbackNoPendingState(t *testing.T) {
	manager := newTestManager(nil, nil, nil)

	if err := manager.HandleCallback(context.Background(), "code", "any"); !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch got %v", err)
	}
}

func TestHandleCallbackSuccess(t *testing.T) {
	store := NewMemoryStore()
	relay := &fakeRelay{
		exchangeGrant: TokenGrant{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			ExpiresIn:    3600,
			TokenType:    "Bearer",
		},
	}
	provider := &fakeProvider{user: models.AuthUser{ID: "u1", Name: "Test User", Email: "t@example.com"}}
	manager := newTestManager(store, relay, provider)

	issuedAt := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	manager.nowFunc = func() time.Time { return issuedAt }

	ctx := context.Background()
	if err := store.SaveState(ctx, "state-1"); err != nil {
		t.Fatalf("save state: %v", err)
	}

	if err := manager.HandleCallback(ctx, "code-1", "state-1"); err != nil {
		t.Fatalf("callback: %v", err)
	}

	if !manager.IsAuthenticated() {
		t.Fatal("expected authenticated session")
	}

	tokens := manager.Tokens()
	if tokens.AccessToken != "access-1" || tokens.RefreshToken != "refresh-1" {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}
	if want := issuedAt.Add(time.Hour); !tokens.ExpiresAt.Equal(want) {
		t.Fatalf("unexpected expiry: got %v want %v", tokens.ExpiresAt, want)
	}

	user, ok := manager.User()
	if !ok || user.Name != "Test User" {
		t.Fatalf("expected user info, got %+v ok=%v", user, ok)
	}

	stored, err := store.LoadTokens(ctx)
	if err != nil {
		t.Fatalf("load tokens: %v", err)
	}
	if stored.AccessToken != "access-1" {
		t.Fatalf("tokens not persisted: %+v", stored)
	}

	if _, err := store.LoadState(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected pending state cleared, got %v", err)
	}
}

func TestHandleCallbackExchangeFailureClearsSession(t *testing.T) {
	store := NewMemoryStore()
	relay := &fakeRelay{exchangeErr: errors.New("relay returned 400")}
	manager := newTestManager(store, relay, nil)

	ctx := context.Background()
	_ = store.SaveTokens(ctx, models.AuthTokens{AccessToken: "stale"})
	_ = store.SaveState(ctx, "state-1")

	if err := manager.HandleCallback(ctx, "code", "state-1"); err == nil {
		t.Fatal("expected exchange failure")
	}

	if manager.Status() != StatusUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", manager.Status())
	}
	if _, err := store.LoadTokens(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected stored tokens cleared, got %v", err)
	}
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	relay := &fakeRelay{}
	manager := newTestManager(nil, relay, nil)

	if err := manager.Refresh(context.Background()); !errors.Is(err, ErrNoRefreshToken) {
		t.Fatalf("expected ErrNoRefreshToken got %v", err)
	}
	if relay.refreshCalls.Load() != 0 {
		t.Fatal("refresh must not call the relay without a token")
	}
	if manager.Status() != StatusUnauthenticated {
		t.Fatalf("a failed refresh is terminal, got %s", manager.Status())
	}
}

func TestInitializeExpiredTokensWithoutRefreshToken(t *testing.T) {
	store := NewMemoryStore()
	relay := &fakeRelay{}
	manager := newTestManager(store, relay, nil)

	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	manager.nowFunc = func() time.Time { return now }

	ctx := context.Background()
	_ = store.SaveTokens(ctx, models.AuthTokens{
		AccessToken: "expired",
		ExpiresAt:   now.Add(-time.Minute),
	})

	manager.Initialize(ctx)

	if manager.Status() != StatusUnauthenticated {
		t.Fatalf("expected unauthenticated after failed silent refresh, got %s", manager.Status())
	}
	if _, err := store.LoadTokens(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected persisted tokens cleared, got %v", err)
	}
	if relay.refreshCalls.Load() != 0 {
		t.Fatal("no relay call expected without a refresh token")
	}
}

func TestRefreshPreservesRefreshToken(t *testing.T) {
	store := NewMemoryStore()
	relay := &fakeRelay{refreshGrant: TokenGrant{AccessToken: "access-2", ExpiresIn: 1800}}
	manager := newTestManager(store, relay, nil)

	issuedAt := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	manager.nowFunc = func() time.Time { return issuedAt }

	manager.tokens = models.AuthTokens{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    issuedAt.Add(-time.Minute),
	}

	if err := manager.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	tokens := manager.Tokens()
	if tokens.AccessToken != "access-2" {
		t.Fatalf("expected new access token, got %q", tokens.AccessToken)
	}
	if tokens.RefreshToken != "refresh-1" {
		t.Fatalf("refresh token must be preserved, got %q", tokens.RefreshToken)
	}
	if want := issuedAt.Add(30 * time.Minute); !tokens.ExpiresAt.Equal(want) {
		t.Fatalf("unexpected expiry: got %v want %v", tokens.ExpiresAt, want)
	}

	stored, err := store.LoadTokens(context.Background())
	if err != nil {
		t.Fatalf("load tokens: %v", err)
	}
	if stored.AccessToken != "access-2" || stored.RefreshToken != "refresh-1" {
		t.Fatalf("unexpected persisted tokens: %+v", stored)
	}
}

func TestRefreshFailureTearsDownSession(t *testing.T) {
	store := NewMemoryStore()
	relay := &fakeRelay{refreshErr: errors.New("relay returned 400")}
	manager := newTestManager(store, relay, nil)

	ctx := context.Background()
	_ = store.SaveTokens(ctx, models.AuthTokens{AccessToken: "a", RefreshToken: "r"})
	manager.tokens = models.AuthTokens{AccessToken: "a", RefreshToken: "r"}

	if err := manager.Refresh(ctx); err == nil {
		t.Fatal("expected refresh failure")
	}

	if manager.Status() != StatusUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", manager.Status())
	}
	if _, err := store.LoadTokens(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected stored tokens cleared, got %v", err)
	}
}

func TestConcurrentRefreshCollapses(t *testing.T) {
	relay := &fakeRelay{
		refreshGrant: TokenGrant{AccessToken: "access-2", ExpiresIn: 3600},
		refreshDelay: 50 * time.Millisecond,
	}
	manager := newTestManager(nil, relay, nil)
	manager.tokens = models.AuthTokens{AccessToken: "a", RefreshToken: "r"}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := manager.Refresh(context.Background()); err != nil {
				t.Errorf("refresh: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls := relay.refreshCalls.Load(); calls != 1 {
		t.Fatalf("expected one in-flight refresh got %d", calls)
	}
}

func TestInitializeWithoutStoredSession(t *testing.T) {
	manager := newTestManager(nil, nil, nil)

	manager.Initialize(context.Background())

	if manager.Status() != StatusUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", manager.Status())
	}
}

func TestInitializeWithValidTokens(t *testing.T) {
	store := NewMemoryStore()
	provider := &fakeProvider{user: models.AuthUser{ID: "u1", Name: "Test User"}}
	manager := newTestManager(store, nil, provider)

	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	manager.nowFunc = func() time.Time { return now }

	ctx := context.Background()
	_ = store.SaveTokens(ctx, models.AuthTokens{
		AccessToken:  "a",
		RefreshToken: "r",
		ExpiresAt:    now.Add(time.Hour),
	})

	manager.Initialize(ctx)

	if !manager.IsAuthenticated() {
		t.Fatal("expected authenticated session")
	}
	if user, ok := manager.User(); !ok || user.Name != "Test User" {
		t.Fatalf("expected user restored, got %+v ok=%v", user, ok)
	}
}

func TestInitializeUserInfoFailureIsDegraded(t *testing.T) {
	store := NewMemoryStore()
	provider := &fakeProvider{userErr: errors.New("userinfo 503")}
	manager := newTestManager(store, nil, provider)

	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	manager.nowFunc = func() time.Time { return now }

	ctx := context.Background()
	_ = store.SaveTokens(ctx, models.AuthTokens{
		AccessToken: "a",
		ExpiresAt:   now.Add(time.Hour),
	})

	manager.Initialize(ctx)

	if !manager.IsAuthenticated() {
		t.Fatal("tokens stay in place when the user fetch fails")
	}
	if _, ok := manager.User(); ok {
		t.Fatal("expected no user in degraded state")
	}
}

func TestInitializeRefreshesExpiredTokens(t *testing.T) {
	store := NewMemoryStore()
	relay := &fakeRelay{refreshGrant: TokenGrant{AccessToken: "access-2", ExpiresIn: 3600}}
	provider := &fakeProvider{user: models.AuthUser{Name: "Test User"}}
	manager := newTestManager(store, relay, provider)

	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	manager.nowFunc = func() time.Time { return now }

	ctx := context.Background()
	_ = store.SaveTokens(ctx, models.AuthTokens{
		AccessToken:  "expired",
		RefreshToken: "r",
		ExpiresAt:    now.Add(-time.Minute),
	})

	manager.Initialize(ctx)

	if !manager.IsAuthenticated() {
		t.Fatal("expected refreshed session")
	}
	if tokens := manager.Tokens(); tokens.AccessToken != "access-2" || tokens.RefreshToken != "r" {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}
}

func TestInitializeRefreshFailureClearsEverything(t *testing.T) {
	store := NewMemoryStore()
	relay := &fakeRelay{refreshErr: errors.New("relay returned 400")}
	manager := newTestManager(store, relay, nil)

	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	manager.nowFunc = func() time.Time { return now }

	ctx := context.Background()
	_ = store.SaveTokens(ctx, models.AuthTokens{
		AccessToken:  "expired",
		RefreshToken: "r",
		ExpiresAt:    now.Add(-time.Minute),
	})
	_ = store.SaveState(ctx, "leftover")

	manager.Initialize(ctx)

	if manager.Status() != StatusUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", manager.Status())
	}
	if _, err := store.LoadTokens(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected tokens cleared, got %v", err)
	}
	if _, err := store.LoadState(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected pending state cleared, got %v", err)
	}
}

func TestLogoutRevokesBestEffort(t *testing.T) {
	store := NewMemoryStore()
	provider := &fakeProvider{revokeErr: errors.New("revoke endpoint down")}
	manager := newTestManager(store, nil, provider)

	ctx := context.Background()
	_ = store.SaveTokens(ctx, models.AuthTokens{AccessToken: "a", RefreshToken: "r"})
	manager.tokens = models.AuthTokens{AccessToken: "a", RefreshToken: "r"}
	manager.status = StatusAuthenticated

	manager.Logout(ctx)

	if manager.Status() != StatusUnauthenticated {
		t.Fatalf("expected unauthenticated after logout, got %s", manager.Status())
	}
	if _, err := store.LoadTokens(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected stored tokens cleared, got %v", err)
	}

	provider.mu.Lock()
	defer provider.mu.Unlock()
	if len(provider.revoked) != 1 || provider.revoked[0] != "a" {
		t.Fatalf("expected revoke attempt for access token, got %v", provider.revoked)
	}
}

func TestAccessTokenRefreshesWhenExpired(t *testing.T) {
	relay := &fakeRelay{refreshGrant: TokenGrant{AccessToken: "access-2", ExpiresIn: 3600}}
	manager := newTestManager(nil, relay, nil)

	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	manager.nowFunc = func() time.Time { return now }
	manager.tokens = models.AuthTokens{
		AccessToken:  "expired",
		RefreshToken: "r",
		ExpiresAt:    now.Add(-time.Second),
	}

	token, err := manager.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("access token: %v", err)
	}
	if token != "access-2" {
		t.Fatalf("expected refreshed token, got %q", token)
	}
}

func TestAccessTokenWhenLoggedOut(t *testing.T) {
	manager := newTestManager(nil, nil, nil)

	if _, err := manager.AccessToken(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated got %v", err)
	}
}

func TestRandomStateIsUnique(t *testing.T) {
	a, err := randomState()
	if err != nil {
		t.Fatalf("random state: %v", err)
	}
	b, err := randomState()
	if err != nil {
		t.Fatalf("random state: %v", err)
	}
	if a == "" || a == b {
		t.Fatalf("expected distinct non-empty states, got %q and %q", a, b)
	}
}
