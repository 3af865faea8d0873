package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/mytube/backend/internal/auth"
	"github.com/mytube/backend/internal/logging"
	"github.com/mytube/backend/internal/models"
)

// AuthHandler exposes the session lifecycle over HTTP: the login redirect,
// the provider callback, silent refresh, logout, and session introspection.
type AuthHandler struct {
	Sessions SessionManager
	Limiter  RateLimiter
	// PostLoginRedirect is where the callback sends the browser after a
	// successful sign-in. Defaults to "/".
	PostLoginRedirect string
}

// Login handles GET /auth/login by redirecting the browser to the identity
// provider's authorization page.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil {
		logger.Error("session manager unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "auth") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	target, err := h.Sessions.LoginURL(ctx)
	if err != nil {
		logger.Error("failed to build login redirect", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to start login"})
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// Callback handles GET /auth/callback, the redirect target registered with
// the identity provider. It forwards code and state to the session manager
// and sends the browser back into the app.
func (h AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil {
		logger.Error("session manager unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "auth") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		logger.Warn("provider returned authorization error", "error", providerErr)
		h.redirectWithError(w, r, providerErr)
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		logger.Warn("callback missing code or state")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "code and state are required"})
		return
	}

	if err := h.Sessions.HandleCallback(ctx, code, state); err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, auth.ErrStateMismatch) {
			status = http.StatusForbidden
		}
		logger.Warn("auth callback failed", "error", err, "status", status)
		respondJSON(ctx, w, status, map[string]string{"error": "authentication failed, please try again"})
		return
	}

	http.Redirect(w, r, h.postLoginRedirect(), http.StatusFound)
}

// Refresh handles POST /api/v1/auth/refresh.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil {
		logger.Error("session manager unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "auth") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	if err := h.Sessions.Refresh(ctx); err != nil {
		logger.Warn("session refresh failed", "error", err)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication failed, please try again"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, h.sessionPayload())
}

// Logout handles POST /api/v1/auth/logout. Local teardown always succeeds.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	if h.Sessions == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	h.Sessions.Logout(ctx)
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Session handles GET /api/v1/auth/session, the introspection endpoint the
// UI polls to decide what to render.
func (h AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	if h.Sessions == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, h.sessionPayload())
}

type sessionResponse struct {
	Authenticated bool             `json:"authenticated"`
	Status        auth.Status      `json:"status"`
	User          *models.AuthUser `json:"user,omitempty"`
}

func (h AuthHandler) sessionPayload() sessionResponse {
	payload := sessionResponse{
		Authenticated: h.Sessions.IsAuthenticated(),
		Status:        h.Sessions.Status(),
	}
	if user, ok := h.Sessions.User(); ok {
		payload.User = &user
	}
	return payload
}

func (h AuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, reason string) {
	target := h.postLoginRedirect() + "?auth_error=" + url.QueryEscape(reason)
	http.Redirect(w, r, target, http.StatusFound)
}

func (h AuthHandler) postLoginRedirect() string {
	if h.PostLoginRedirect != "" {
		return h.PostLoginRedirect
	}
	return "/"
}
