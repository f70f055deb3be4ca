// Package configs provides application configuration loaded from environment variables.
// All configuration is externalized via environment variables for 12-factor app compliance.
package configs

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all application configuration.
// Load it once at startup using AppLoad().
type AppConfig struct {
	// API contains settings for the exchange REST API client.
	API APIConfig

	// Poll contains refresh intervals for the market and book pollers.
	Poll PollConfig

	// Server contains settings for the HTTP API surface.
	Server ServerConfig

	// Feed contains Kafka settings for the trade feed publisher.
	// The feed is disabled when Broker is empty.
	Feed FeedConfig
}

// APIConfig holds exchange API client settings.
type APIConfig struct {
	// BaseURL is the exchange API root (e.g., "https://api.bitpin.org/api").
	BaseURL string

	// MarketsVersion is the API version segment for the market catalog endpoint.
	MarketsVersion string

	// OrdersVersion is the API version segment for the active orders endpoint.
	OrdersVersion string

	// TradesVersion is the API version segment for the recent matches endpoint.
	TradesVersion string

	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration

	// RatePerSecond is the request budget shared by all pollers.
	RatePerSecond float64

	// SnapshotDepth is the number of entries kept per order-book side
	// and trade list after fetch.
	SnapshotDepth int
}

// PollConfig holds refresh intervals.
type PollConfig struct {
	// MarketsInterval is how often the market catalog is refreshed.
	MarketsInterval time.Duration

	// SnapshotInterval is how often a watched market's book is refreshed.
	SnapshotInterval time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port is the listen port for the JSON API.
	Port string
}

// FeedConfig holds Kafka connection settings for the trade feed.
type FeedConfig struct {
	// Broker is the Kafka broker address (e.g., "localhost:9092").
	Broker string

	// Topic is the Kafka topic for published trades.
	Topic string
}

// AppLoad loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development).
// Call this once at application startup.
func AppLoad() *AppConfig {
	_ = godotenv.Load() // Ignore error - .env is optional

	return &AppConfig{
		API: APIConfig{
			BaseURL:        getEnv("BITPIN_API_URL", "https://api.bitpin.org/api"),
			MarketsVersion: getEnv("BITPIN_MARKETS_VERSION", "v1"),
			OrdersVersion:  getEnv("BITPIN_ORDERS_VERSION", "v2"),
			TradesVersion:  getEnv("BITPIN_TRADES_VERSION", "v1"),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
			RatePerSecond:  getEnvFloat("API_RATE_PER_SECOND", 5),
			SnapshotDepth:  getEnvInt("SNAPSHOT_DEPTH", 10),
		},
		Poll: PollConfig{
			MarketsInterval:  getEnvDuration("MARKETS_POLL_INTERVAL", 3*time.Second),
			SnapshotInterval: getEnvDuration("SNAPSHOT_POLL_INTERVAL", 30*time.Second),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Feed: FeedConfig{
			Broker: getEnv("KAFKA_BROKER", ""),
			Topic:  getEnv("KAFKA_TRADE_TOPIC", "sonar_trades"),
		},
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvFloat returns the environment variable as float64 or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDuration returns the environment variable as a duration or a default.
// Accepts Go duration strings ("3s", "1m30s").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
