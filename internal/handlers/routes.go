package handlers

import "net/http"

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Sessions     SessionManager
	Browser      VideoBrowser
	Relay        RelayHandler
	AuthLimiter  RateLimiter
	Retry        RetryPolicy
	PostLoginURL string
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{
		Sessions:          deps.Sessions,
		Limiter:           deps.AuthLimiter,
		PostLoginRedirect: deps.PostLoginURL,
	}
	videos := VideoHandler{Browser: deps.Browser, Retry: deps.Retry}

	mux.HandleFunc("/healthz", health.Handle)

	mux.HandleFunc("/auth/login", auth.Login)
	mux.HandleFunc("/auth/callback", auth.Callback)
	mux.HandleFunc("/api/v1/auth/refresh", auth.Refresh)
	mux.HandleFunc("/api/v1/auth/logout", auth.Logout)
	mux.HandleFunc("/api/v1/auth/session", auth.Session)

	mux.HandleFunc("/api/auth/code-exchange", deps.Relay.CodeExchange)
	mux.HandleFunc("/api/auth/refresh", deps.Relay.Refresh)

	mux.HandleFunc("/api/v1/subscriptions", videos.Subscriptions)
	mux.HandleFunc("/api/v1/search", videos.Search)
	mux.HandleFunc("/api/v1/channels", videos.ChannelDetails)
	mux.HandleFunc("/api/v1/channels/videos", videos.ChannelVideos)
	mux.HandleFunc("/api/v1/videos", videos.VideoDetails)
}
