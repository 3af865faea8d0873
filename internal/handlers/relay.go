package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/mytube/backend/internal/logging"
)

const googleTokenURL = "https://oauth2.googleapis.com/token"

// RelayHandler implements the token exchange relay: the two endpoints that
// hold the OAuth client secret and broker code and refresh exchanges with
// the identity provider, keeping the secret away from API clients.
type RelayHandler struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// TokenEndpoint defaults to Google's token URL. Overridable for tests.
	TokenEndpoint string
	HTTPClient    *http.Client
}

// CodeExchange handles POST /api/auth/code-exchange.
func (h RelayHandler) CodeExchange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "authorization code is required"})
		return
	}

	if h.ClientID == "" || h.ClientSecret == "" {
		logger.Error("oauth client credentials not configured")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "oauth configuration error"})
		return
	}

	form := url.Values{}
	form.Set("client_id", h.ClientID)
	form.Set("client_secret", h.ClientSecret)
	form.Set("code", req.Code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", h.RedirectURI)

	grant, ok := h.exchange(w, r, form)
	if !ok {
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{
		"access_token":  grant["access_token"],
		"refresh_token": grant["refresh_token"],
		"expires_in":    grant["expires_in"],
		"token_type":    grant["token_type"],
	})
}

// Refresh handles POST /api/auth/refresh.
func (h RelayHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "refresh token is required"})
		return
	}

	if h.ClientID == "" || h.ClientSecret == "" {
		logger.Error("oauth client credentials not configured")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "oauth configuration error"})
		return
	}

	form := url.Values{}
	form.Set("client_id", h.ClientID)
	form.Set("client_secret", h.ClientSecret)
	form.Set("refresh_token", req.RefreshToken)
	form.Set("grant_type", "refresh_token")

	grant, ok := h.exchange(w, r, form)
	if !ok {
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{
		"access_token": grant["access_token"],
		"expires_in":   grant["expires_in"],
		"token_type":   grant["token_type"],
	})
}

// exchange posts the form to the provider's token endpoint and decodes the
// grant. It writes the error response itself and reports success via ok.
func (h RelayHandler) exchange(w http.ResponseWriter, r *http.Request, form url.Values) (map[string]any, bool) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	endpoint := h.TokenEndpoint
	if endpoint == "" {
		endpoint = googleTokenURL
	}
	client := h.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		logger.Error("build token request", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return nil, false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("token endpoint unreachable", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("provider rejected token exchange", "status", resp.StatusCode)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "failed to exchange credentials for tokens"})
		return nil, false
	}

	var grant map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		logger.Error("parse token response", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return nil, false
	}
	return grant, true
}
