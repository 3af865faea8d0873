package youtube

import (
	"errors"
	"fmt"
)

var (
	// ErrChannelNotFound indicates the channel lookup returned an empty item list.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrVideoNotFound indicates the video lookup returned an empty item list.
	ErrVideoNotFound = errors.New("video not found")
)

// APIError reports a non-2xx response from the platform API. The upstream
// status code and text are preserved verbatim so callers can make retry
// decisions (401/403 are never worth retrying).
type APIError struct {
	StatusCode int
	Status     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("youtube api error: %d %s", e.StatusCode, e.Status)
}

// IsAuthError reports whether the error is an upstream rejection of the
// caller's credentials.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
}
