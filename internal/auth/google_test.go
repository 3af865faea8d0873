package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestAuthorizeURLParameters(t *testing.T) {
	provider := NewGoogleProvider("client-id", "http://localhost:8080/auth/callback", nil)

	target, err := url.Parse(provider.AuthorizeURL("state-1"))
	if err != nil {
		t.Fatalf("parse authorize url: %v", err)
	}

	query := target.Query()
	checks := map[string]string{
		"client_id":     "client-id",
		"redirect_uri":  "http://localhost:8080/auth/callback",
		"response_type": "code",
		"scope":         YouTubeScope,
		"state":         "state-1",
		"access_type":   "offline",
		"prompt":        "consent",
	}
	for key, want := range checks {
		if got := query.Get(key); got != want {
			t.Fatalf("expected %s=%q got %q", key, want, got)
		}
	}
}

func TestFetchUserInfo(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"id":"u1","email":"t@example.com","name":"Test User","picture":"https://example.com/p.png"}`))
	}))
	defer server.Close()

	provider := NewGoogleProvider("client-id", "http://localhost/cb", server.Client())
	provider.UserInfoEndpoint = server.URL

	user, err := provider.FetchUserInfo(context.Background(), "access-1")
	if err != nil {
		t.Fatalf("fetch user info: %v", err)
	}

	if gotAuth != "Bearer access-1" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if user.ID != "u1" || user.Name != "Test User" || user.Email != "t@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestFetchUserInfoRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := NewGoogleProvider("client-id", "http://localhost/cb", server.Client())
	provider.UserInfoEndpoint = server.URL

	if _, err := provider.FetchUserInfo(context.Background(), "expired"); err == nil {
		t.Fatal("expected error for rejected token")
	}
}

func TestRevokeSendsToken(t *testing.T) {
	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.URL.Query().Get("token")
	}))
	defer server.Close()

	provider := NewGoogleProvider("client-id", "http://localhost/cb", server.Client())
	provider.RevokeEndpoint = server.URL

	if err := provider.Revoke(context.Background(), "access-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if gotToken != "access-1" {
		t.Fatalf("unexpected revoked token %q", gotToken)
	}
}
