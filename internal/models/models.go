package models

import "time"

// AuthUser describes the signed-in user as reported by the identity
// provider's user-info endpoint. It is derived data, re-fetched from a valid
// token on process start rather than persisted.
type AuthUser struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// AuthTokens groups the OAuth2 credentials held for the current session.
// ExpiresAt is derived as issuance time plus the provider's expires_in; the
// pair is valid only while ExpiresAt is in the future.
type AuthTokens struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Valid reports whether the access token is still usable at the given instant.
func (t AuthTokens) Valid(now time.Time) bool {
	return t.AccessToken != "" && t.ExpiresAt.After(now)
}

// Video is an immutable snapshot of a video as returned by the platform API.
type Video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Thumbnail    string `json:"thumbnail"`
	ChannelTitle string `json:"channelTitle"`
	ChannelID    string `json:"channelId"`
	PublishedAt  string `json:"publishedAt"`
	Duration     string `json:"duration,omitempty"`
	ViewCount    string `json:"viewCount,omitempty"`
}

// Channel is an immutable snapshot of a channel.
type Channel struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Thumbnail       string `json:"thumbnail"`
	SubscriberCount string `json:"subscriberCount,omitempty"`
	VideoCount      string `json:"videoCount,omitempty"`
}

// Subscription links the signed-in user to one of their subscribed channels.
type Subscription struct {
	ID          string  `json:"id"`
	ChannelID   string  `json:"channelId"`
	Channel     Channel `json:"channel"`
	PublishedAt string  `json:"publishedAt"`
}

// PageInfo carries the upstream result counters for a list response.
type PageInfo struct {
	TotalResults   int `json:"totalResults"`
	ResultsPerPage int `json:"resultsPerPage"`
}

// Page is the paginated envelope returned by list endpoints. An empty
// NextPageToken marks the final page; there is no count-based termination.
type Page[T any] struct {
	Items         []T      `json:"items"`
	NextPageToken string   `json:"nextPageToken,omitempty"`
	PageInfo      PageInfo `json:"pageInfo"`
}
