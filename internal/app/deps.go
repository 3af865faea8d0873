package app

import (
	"net/http"
	"time"

	"github.com/mytube/backend/internal/auth"
	"github.com/mytube/backend/internal/config"
	"github.com/mytube/backend/internal/db"
	"github.com/mytube/backend/internal/handlers"
	"github.com/mytube/backend/internal/middleware"
	"github.com/mytube/backend/internal/repositories"
	"github.com/mytube/backend/internal/youtube"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The session manager is returned separately so the caller can run
// its startup initialization.
func buildDependencies(pool db.Pool, cfg config.Config) (handlers.Dependencies, *auth.Manager, error) {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var store auth.TokenStore
	if pool != nil {
		store = repositories.NewPostgresTokenStore(pool)
	} else {
		fileStore, err := auth.NewFileStore(cfg.TokenStorePath, cfg.TokenSealKey)
		if err != nil {
			return handlers.Dependencies{}, nil, err
		}
		store = fileStore
	}

	provider := auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleRedirectURI, httpClient)
	relay := auth.NewRelayClient(cfg.RelayBaseURL, httpClient)
	sessions := auth.NewManager(store, relay, provider)

	browser := youtube.NewClient(cfg.YouTubeBaseURL, cfg.YouTubeAPIKey, sessions, cfg.ResponseCacheTTL, httpClient)

	deps := handlers.Dependencies{
		Sessions: sessions,
		Browser:  browser,
		Relay: handlers.RelayHandler{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURI:  cfg.GoogleRedirectURI,
			HTTPClient:   httpClient,
		},
		AuthLimiter: middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute),
		Retry:       handlers.DefaultRetryPolicy(),
	}

	return deps, sessions, nil
}
