package auth

import "errors"

var (
	// ErrStateMismatch indicates the callback state did not match the pending
	// value persisted at login time. The callback must be rejected hard.
	ErrStateMismatch = errors.New("oauth state mismatch")
	// ErrNoRefreshToken indicates a refresh was requested without a refresh
	// token on hand.
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrTokenExchange indicates the relay rejected the authorization code.
	ErrTokenExchange = errors.New("token exchange failed")
	// ErrTokenRefresh indicates the relay rejected the refresh token.
	ErrTokenRefresh = errors.New("token refresh failed")
	// ErrNoSession indicates the token store holds no value for the key.
	ErrNoSession = errors.New("no stored session")
	// ErrNotAuthenticated indicates an access token was requested while the
	// session is logged out.
	ErrNotAuthenticated = errors.New("not authenticated")
)
