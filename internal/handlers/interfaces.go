package handlers

import (
	"context"

	"github.com/mytube/backend/internal/auth"
	"github.com/mytube/backend/internal/models"
)

// SessionManager captures the auth session operations required by the HTTP
// handlers.
type SessionManager interface {
	LoginURL(ctx context.Context) (string, error)
	HandleCallback(ctx context.Context, code, state string) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context)
	Status() auth.Status
	User() (models.AuthUser, bool)
	IsAuthenticated() bool
}

// VideoBrowser captures the video platform operations required by the
// browsing handlers.
type VideoBrowser interface {
	GetSubscriptions(ctx context.Context, maxResults int, pageToken string) (models.Page[models.Subscription], error)
	GetChannelVideos(ctx context.Context, channelID string, maxResults int, pageToken string) (models.Page[models.Video], error)
	SearchVideos(ctx context.Context, query string, maxResults int, pageToken string) (models.Page[models.Video], error)
	GetChannelDetails(ctx context.Context, channelID string) (models.Channel, error)
	GetVideoDetails(ctx context.Context, videoID string) (models.Video, error)
}
