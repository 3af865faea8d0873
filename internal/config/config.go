package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config captures the runtime configuration for the MyTube backend service.
type Config struct {
	AppPort      int
	LogLevel     string
	MigrationDir string

	// DatabaseURL selects the durable token store. When empty the service
	// falls back to the file token store at TokenStorePath.
	DatabaseURL    string
	TokenStorePath string
	// TokenSealKey, when set, encrypts tokens at rest in the file store.
	// Must decode to 32 bytes of base64.
	TokenSealKey string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	YouTubeAPIKey  string
	YouTubeBaseURL string
	RelayBaseURL   string

	ResponseCacheTTL time.Duration
	HTTPTimeout      time.Duration
}

// Load reads configuration from the environment, applying defaults suitable
// for local development. A .env file in the working directory is honoured
// when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppPort:            getInt("MYTUBE_PORT", 8080),
		LogLevel:           getString("MYTUBE_LOG_LEVEL", "info"),
		MigrationDir:       getString("MYTUBE_MIGRATIONS", "migrations"),
		DatabaseURL:        getString("MYTUBE_DATABASE_URL", ""),
		TokenStorePath:     getString("MYTUBE_TOKEN_STORE", "mytube_session.json"),
		TokenSealKey:       getString("MYTUBE_TOKEN_SEAL_KEY", ""),
		GoogleClientID:     getString("MYTUBE_GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getString("MYTUBE_GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getString("MYTUBE_GOOGLE_REDIRECT_URI", "http://localhost:8080/auth/callback"),
		YouTubeAPIKey:      getString("MYTUBE_YOUTUBE_API_KEY", ""),
		YouTubeBaseURL:     getString("MYTUBE_YOUTUBE_BASE_URL", "https://www.googleapis.com/youtube/v3"),
		RelayBaseURL:       getString("MYTUBE_RELAY_BASE_URL", "http://localhost:8080/api/auth"),
		ResponseCacheTTL:   getDuration("MYTUBE_RESPONSE_CACHE_TTL", 5*time.Minute),
		HTTPTimeout:        getDuration("MYTUBE_HTTP_TIMEOUT", 30*time.Second),
	}

	if cfg.GoogleClientID == "" {
		return Config{}, errors.New("config: MYTUBE_GOOGLE_CLIENT_ID is required")
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
