package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mytube/backend/internal/models"
)

const defaultMaxResults = 50

// TokenSource supplies the current OAuth2 access token for outbound calls.
// The auth session manager implements this interface.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client wraps the YouTube Data API with credential injection, response
// caching, and normalization into the application's domain model.
type Client struct {
	baseURL    string
	apiKey     string
	tokens     TokenSource
	httpClient *http.Client
	cache      *responseCache
	now        func() time.Time
}

// NewClient constructs an API client. Responses are cached for cacheTTL; a
// non-positive TTL falls back to five minutes.
func NewClient(baseURL, apiKey string, tokens TokenSource, cacheTTL time.Duration, httpClient *http.Client) *Client {
	if tokens == nil {
		panic("youtube: token source must not be nil")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://www.googleapis.com/youtube/v3"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	now := time.Now
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		tokens:     tokens,
		httpClient: httpClient,
		cache:      newResponseCache(cacheTTL, now),
		now:        now,
	}
}

// GetSubscriptions lists the signed-in user's channel subscriptions.
func (c *Client) GetSubscriptions(ctx context.Context, maxResults int, pageToken string) (models.Page[models.Subscription], error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails")
	params.Set("mine", "true")
	params.Set("maxResults", strconv.Itoa(normalizeMaxResults(maxResults)))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	payload, err := c.request(ctx, "/subscriptions", params)
	if err != nil {
		return models.Page[models.Subscription]{}, err
	}

	envelope, err := decodeList[subscriptionResource](payload)
	if err != nil {
		return models.Page[models.Subscription]{}, err
	}

	page := models.Page[models.Subscription]{
		Items:         make([]models.Subscription, 0, len(envelope.Items)),
		NextPageToken: envelope.NextPageToken,
		PageInfo:      envelope.PageInfo,
	}
	for _, item := range envelope.Items {
		page.Items = append(page.Items, models.Subscription{
			ID:          item.ID,
			ChannelID:   item.Snippet.ResourceID.ChannelID,
			PublishedAt: item.Snippet.PublishedAt,
			Channel: models.Channel{
				ID:          item.Snippet.ResourceID.ChannelID,
				Title:       item.Snippet.Title,
				Description: item.Snippet.Description,
				Thumbnail:   item.Snippet.Thumbnails.Default.URL,
			},
		})
	}
	return page, nil
}

// GetChannelVideos lists a channel's uploads, newest first.
func (c *Client) GetChannelVideos(ctx context.Context, channelID string, maxResults int, pageToken string) (models.Page[models.Video], error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("channelId", channelID)
	params.Set("order", "date")
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(normalizeMaxResults(maxResults)))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}
	return c.searchPage(ctx, params)
}

// SearchVideos performs a free-text video search.
func (c *Client) SearchVideos(ctx context.Context, query string, maxResults int, pageToken string) (models.Page[models.Video], error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(normalizeMaxResults(maxResults)))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}
	return c.searchPage(ctx, params)
}

// GetChannelDetails fetches a single channel with its statistics.
func (c *Client) GetChannelDetails(ctx context.Context, channelID string) (models.Channel, error) {
	params := url.Values{}
	params.Set("part", "snippet,statistics")
	params.Set("id", channelID)

	payload, err := c.request(ctx, "/channels", params)
	if err != nil {
		return models.Channel{}, err
	}

	envelope, err := decodeList[channelResource](payload)
	if err != nil {
		return models.Channel{}, err
	}
	if len(envelope.Items) == 0 {
		return models.Channel{}, ErrChannelNotFound
	}

	item := envelope.Items[0]
	return models.Channel{
		ID:              item.ID,
		Title:           item.Snippet.Title,
		Description:     item.Snippet.Description,
		Thumbnail:       item.Snippet.Thumbnails.Default.URL,
		SubscriberCount: item.Statistics.SubscriberCount,
		VideoCount:      item.Statistics.VideoCount,
	}, nil
}

// GetVideoDetails fetches a single video with duration and view statistics.
func (c *Client) GetVideoDetails(ctx context.Context, videoID string) (models.Video, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("id", videoID)

	payload, err := c.request(ctx, "/videos", params)
	if err != nil {
		return models.Video{}, err
	}

	envelope, err := decodeList[videoResource](payload)
	if err != nil {
		return models.Video{}, err
	}
	if len(envelope.Items) == 0 {
		return models.Video{}, ErrVideoNotFound
	}

	item := envelope.Items[0]
	return models.Video{
		ID:           item.ID,
		Title:        item.Snippet.Title,
		Description:  item.Snippet.Description,
		Thumbnail:    item.Snippet.Thumbnails.Medium.URL,
		ChannelTitle: item.Snippet.ChannelTitle,
		ChannelID:    item.Snippet.ChannelID,
		PublishedAt:  item.Snippet.PublishedAt,
		Duration:     item.ContentDetails.Duration,
		ViewCount:    item.Statistics.ViewCount,
	}, nil
}

func (c *Client) searchPage(ctx context.Context, params url.Values) (models.Page[models.Video], error) {
	payload, err := c.request(ctx, "/search", params)
	if err != nil {
		return models.Page[models.Video]{}, err
	}

	envelope, err := decodeList[searchResource](payload)
	if err != nil {
		return models.Page[models.Video]{}, err
	}

	page := models.Page[models.Video]{
		Items:         make([]models.Video, 0, len(envelope.Items)),
		NextPageToken: envelope.NextPageToken,
		PageInfo:      envelope.PageInfo,
	}
	for _, item := range envelope.Items {
		page.Items = append(page.Items, models.Video{
			ID:           item.ID.VideoID,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			Thumbnail:    item.Snippet.Thumbnails.Medium.URL,
			ChannelTitle: item.Snippet.ChannelTitle,
			ChannelID:    item.Snippet.ChannelID,
			PublishedAt:  item.Snippet.PublishedAt,
		})
	}
	return page, nil
}

// request resolves credentials, consults the cache, and otherwise performs an
// HTTPS GET against the upstream API. Successful bodies are cached verbatim
// under the request signature.
func (c *Client) request(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve access token: %w", err)
	}

	query := url.Values{}
	for key, values := range params {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	query.Set("key", c.apiKey)
	query.Set("access_token", token)

	// Encode sorts keys, giving a deterministic signature.
	cacheKey := endpoint + "?" + query.Encode()
	if payload, ok := c.cache.get(cacheKey); ok {
		return payload, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+cacheKey, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", endpoint, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
		}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}

	c.cache.set(cacheKey, payload)
	return payload, nil
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func normalizeMaxResults(maxResults int) int {
	if maxResults <= 0 {
		return defaultMaxResults
	}
	return maxResults
}

// Upstream wire shapes. Optional thumbnail and statistics fields decode to
// empty strings rather than failing.

type listEnvelope[T any] struct {
	Items         []T             `json:"items"`
	NextPageToken string          `json:"nextPageToken"`
	PageInfo      models.PageInfo `json:"pageInfo"`
}

func decodeList[T any](payload []byte) (listEnvelope[T], error) {
	var envelope listEnvelope[T]
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return listEnvelope[T]{}, fmt.Errorf("parse api response: %w", err)
	}
	return envelope, nil
}

type thumbnail struct {
	URL string `json:"url"`
}

type thumbnailSet struct {
	Default thumbnail `json:"default"`
	Medium  thumbnail `json:"medium"`
}

type subscriptionResource struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		PublishedAt string `json:"publishedAt"`
		ResourceID  struct {
			ChannelID string `json:"channelId"`
		} `json:"resourceId"`
		Thumbnails thumbnailSet `json:"thumbnails"`
	} `json:"snippet"`
}

type searchResource struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string       `json:"title"`
		Description  string       `json:"description"`
		ChannelTitle string       `json:"channelTitle"`
		ChannelID    string       `json:"channelId"`
		PublishedAt  string       `json:"publishedAt"`
		Thumbnails   thumbnailSet `json:"thumbnails"`
	} `json:"snippet"`
}

type channelResource struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string       `json:"title"`
		Description string       `json:"description"`
		Thumbnails  thumbnailSet `json:"thumbnails"`
	} `json:"snippet"`
	Statistics struct {
		SubscriberCount string `json:"subscriberCount"`
		VideoCount      string `json:"videoCount"`
	} `json:"statistics"`
}

type videoResource struct {
	ID      string `json:"id"`
	Snippet struct {
		Title        string       `json:"title"`
		Description  string       `json:"description"`
		ChannelTitle string       `json:"channelTitle"`
		ChannelID    string       `json:"channelId"`
		PublishedAt  string       `json:"publishedAt"`
		Thumbnails   thumbnailSet `json:"thumbnails"`
	} `json:"snippet"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
	Statistics struct {
		ViewCount string `json:"viewCount"`
	} `json:"statistics"`
}
