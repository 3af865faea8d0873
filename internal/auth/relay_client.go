package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// TokenGrant is the response shape shared by both relay endpoints. The
// refresh flow omits RefreshToken because the provider does not rotate it.
type TokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// RelayClient talks to the token exchange relay, the backend pair of
// endpoints that hold the OAuth client secret and broker code and refresh
// exchanges with the identity provider.
type RelayClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRelayClient constructs a client for the relay rooted at baseURL
// (e.g. http://localhost:8080/api/auth).
func NewRelayClient(baseURL string, httpClient *http.Client) *RelayClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RelayClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// ExchangeCode trades an authorization code for a full token grant.
func (c *RelayClient) ExchangeCode(ctx context.Context, code string) (TokenGrant, error) {
	grant, err := c.post(ctx, "/code-exchange", map[string]string{"code": code})
	if err != nil {
		return TokenGrant{}, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	return grant, nil
}

// RefreshToken trades a refresh token for a new access token.
func (c *RelayClient) RefreshToken(ctx context.Context, refreshToken string) (TokenGrant, error) {
	grant, err := c.post(ctx, "/refresh", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return TokenGrant{}, fmt.Errorf("%w: %v", ErrTokenRefresh, err)
	}
	return grant, nil
}

func (c *RelayClient) post(ctx context.Context, endpoint string, payload map[string]string) (TokenGrant, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return TokenGrant{}, fmt.Errorf("encode relay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return TokenGrant{}, fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TokenGrant{}, fmt.Errorf("call relay %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var relayErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&relayErr)
		if relayErr.Error != "" {
			return TokenGrant{}, fmt.Errorf("relay returned %d: %s", resp.StatusCode, relayErr.Error)
		}
		return TokenGrant{}, fmt.Errorf("relay returned %d", resp.StatusCode)
	}

	var grant TokenGrant
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return TokenGrant{}, fmt.Errorf("parse relay response: %w", err)
	}
	return grant, nil
}
