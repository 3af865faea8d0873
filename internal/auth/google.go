package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mytube/backend/internal/models"
)

// Default Google endpoints. Overridable for tests.
const (
	googleAuthorizeURL = "https://accounts.google.com/o/oauth2/v2/auth"
	googleUserInfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleRevokeURL    = "https://oauth2.googleapis.com/revoke"

	// YouTubeScope grants read-only access to the user's YouTube data.
	YouTubeScope = "https://www.googleapis.com/auth/youtube.readonly"
)

// GoogleProvider covers the identity-provider surface the session manager
// needs: building the authorization redirect, fetching user info, and
// revoking tokens on logout.
type GoogleProvider struct {
	ClientID    string
	RedirectURI string
	Scope       string

	AuthorizeEndpoint string
	UserInfoEndpoint  string
	RevokeEndpoint    string

	httpClient *http.Client
}

// NewGoogleProvider constructs a provider client for the given OAuth app.
func NewGoogleProvider(clientID, redirectURI string, httpClient *http.Client) *GoogleProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GoogleProvider{
		ClientID:          clientID,
		RedirectURI:       redirectURI,
		Scope:             YouTubeScope,
		AuthorizeEndpoint: googleAuthorizeURL,
		UserInfoEndpoint:  googleUserInfoURL,
		RevokeEndpoint:    googleRevokeURL,
		httpClient:        httpClient,
	}
}

// AuthorizeURL builds the full-page redirect target for the login flow.
// access_type=offline and prompt=consent make the provider return a refresh
// token on every grant.
func (p *GoogleProvider) AuthorizeURL(state string) string {
	query := url.Values{}
	query.Set("client_id", p.ClientID)
	query.Set("redirect_uri", p.RedirectURI)
	query.Set("response_type", "code")
	query.Set("scope", p.Scope)
	query.Set("state", state)
	query.Set("access_type", "offline")
	query.Set("prompt", "consent")
	return p.AuthorizeEndpoint + "?" + query.Encode()
}

// FetchUserInfo loads the signed-in user's profile from the provider.
func (p *GoogleProvider) FetchUserInfo(ctx context.Context, accessToken string) (models.AuthUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoEndpoint, nil)
	if err != nil {
		return models.AuthUser{}, fmt.Errorf("build user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return models.AuthUser{}, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.AuthUser{}, fmt.Errorf("user info endpoint returned %d", resp.StatusCode)
	}

	var user models.AuthUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return models.AuthUser{}, fmt.Errorf("parse user info: %w", err)
	}
	return user, nil
}

// Revoke invalidates the access token at the provider. Callers treat this as
// best-effort; local session teardown never depends on it.
func (p *GoogleProvider) Revoke(ctx context.Context, accessToken string) error {
	endpoint := p.RevokeEndpoint + "?token=" + url.QueryEscape(accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build revoke request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke endpoint returned %d", resp.StatusCode)
	}
	return nil
}
