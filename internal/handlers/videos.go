package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/mytube/backend/internal/logging"
	"github.com/mytube/backend/internal/models"
	"github.com/mytube/backend/internal/youtube"
)

// VideoHandler exposes the video browsing endpoints backed by the caching
// API client. It owns the retry policy; the client itself never retries.
type VideoHandler struct {
	Browser VideoBrowser
	Retry   RetryPolicy
}

// Subscriptions handles GET /api/v1/subscriptions.
func (h VideoHandler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Browser == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "video services unavailable"})
		return
	}

	maxResults := queryInt(r, "maxResults")
	pageToken := r.URL.Query().Get("pageToken")

	page, err := fetchWithRetry(ctx, h.Retry, func(ctx context.Context) (models.Page[models.Subscription], error) {
		return h.Browser.GetSubscriptions(ctx, maxResults, pageToken)
	})
	if err != nil {
		h.respondUpstreamError(w, r, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, page)
}

// ChannelVideos handles GET /api/v1/channels/videos?channelId=...
func (h VideoHandler) ChannelVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Browser == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "video services unavailable"})
		return
	}

	channelID := strings.TrimSpace(r.URL.Query().Get("channelId"))
	if channelID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "channelId is required"})
		return
	}

	maxResults := queryInt(r, "maxResults")
	pageToken := r.URL.Query().Get("pageToken")

	page, err := fetchWithRetry(ctx, h.Retry, func(ctx context.Context) (models.Page[models.Video], error) {
		return h.Browser.GetChannelVideos(ctx, channelID, maxResults, pageToken)
	})
	if err != nil {
		h.respondUpstreamError(w, r, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, page)
}

// Search handles GET /api/v1/search?q=...
func (h VideoHandler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Browser == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "video services unavailable"})
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}

	maxResults := queryInt(r, "maxResults")
	pageToken := r.URL.Query().Get("pageToken")

	page, err := fetchWithRetry(ctx, h.Retry, func(ctx context.Context) (models.Page[models.Video], error) {
		return h.Browser.SearchVideos(ctx, query, maxResults, pageToken)
	})
	if err != nil {
		h.respondUpstreamError(w, r, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, page)
}

// ChannelDetails handles GET /api/v1/channels?id=...
func (h VideoHandler) ChannelDetails(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Browser == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "video services unavailable"})
		return
	}

	channelID := strings.TrimSpace(r.URL.Query().Get("id"))
	if channelID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}

	channel, err := fetchWithRetry(ctx, h.Retry, func(ctx context.Context) (models.Channel, error) {
		return h.Browser.GetChannelDetails(ctx, channelID)
	})
	if err != nil {
		h.respondUpstreamError(w, r, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, channel)
}

// VideoDetails handles GET /api/v1/videos?id=...
func (h VideoHandler) VideoDetails(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Browser == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "video services unavailable"})
		return
	}

	videoID := strings.TrimSpace(r.URL.Query().Get("id"))
	if videoID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}

	video, err := fetchWithRetry(ctx, h.Retry, func(ctx context.Context) (models.Video, error) {
		return h.Browser.GetVideoDetails(ctx, videoID)
	})
	if err != nil {
		h.respondUpstreamError(w, r, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, video)
}

// respondUpstreamError maps API client failures onto HTTP responses,
// surfacing the literal upstream status text when available.
func (h VideoHandler) respondUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	switch {
	case errors.Is(err, youtube.ErrChannelNotFound), errors.Is(err, youtube.ErrVideoNotFound):
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	var apiErr *youtube.APIError
	if errors.As(err, &apiErr) {
		status := http.StatusBadGateway
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			status = apiErr.StatusCode
		}
		logger.Warn("upstream api error", "upstreamStatus", apiErr.StatusCode, "error", err)
		respondJSON(ctx, w, status, map[string]string{"error": apiErr.Error()})
		return
	}

	logger.Error("video request failed", "error", err)
	respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to reach the video platform"})
}

func queryInt(r *http.Request, key string) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return 0
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return i
}
