package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Transport modes for the remote news service.
const (
	TransportREST  = "rest"
	TransportAgent = "agent"
)

type Config struct {
	// Service configuration
	ServiceName string
	LogLevel    string
	DebugMode   bool

	// Remote news service
	NewsAPIBaseURL  string
	RequestTimeout  time.Duration
	NewsTransport   string
	NewsAgentID     string
	NewsMaxArticles int
	HealthInterval  time.Duration

	// NATS configuration
	NatsURL            string
	NatsRequestSubject string
	NatsStatusSubject  string
	NatsTimeout        time.Duration

	// Sessions idle longer than SessionTTL are dropped; 0 keeps them forever
	SessionTTL time.Duration

	// Redis configuration, optional
	RedisURL string
	BusyTTL  time.Duration

	// HTTP configuration
	HTTPAddr string
}

func Load() (*Config, error) {
	cfg := &Config{
		// Service settings
		ServiceName: getEnv("SERVICE_NAME", "newsbuddy"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DebugMode:   getBoolEnv("DEBUG_MODE", false),

		// Remote news service settings
		NewsAPIBaseURL:  getEnv("NEWS_API_BASE_URL", "https://mastra-agent.liuweiyuan0713.workers.dev"),
		RequestTimeout:  getDurationEnv("REQUEST_TIMEOUT", 30*time.Second),
		NewsTransport:   strings.ToLower(getEnv("NEWS_TRANSPORT", TransportREST)),
		NewsAgentID:     getEnv("NEWS_AGENT_ID", "newsSummarizer"),
		NewsMaxArticles: getIntEnv("NEWS_MAX_ARTICLES", 20),
		HealthInterval:  getDurationEnv("HEALTH_INTERVAL", 60*time.Second),

		// NATS settings
		NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		NatsRequestSubject: getEnv("NATS_REQUEST_SUBJECT", "news.chat"),
		NatsStatusSubject:  getEnv("NATS_STATUS_SUBJECT", "news.status"),
		NatsTimeout:        getDurationEnv("NATS_TIMEOUT", 30*time.Second),

		SessionTTL: getDurationEnv("SESSION_TTL", 30*time.Minute),

		// Redis settings
		RedisURL: getEnv("REDIS_URL", ""),
		BusyTTL:  getDurationEnv("BUSY_TTL", 2*time.Minute),

		// HTTP settings
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted away.
func (c *Config) Validate() error {
	u, err := url.Parse(c.NewsAPIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid NEWS_API_BASE_URL %q", c.NewsAPIBaseURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.HealthInterval <= 0 {
		return fmt.Errorf("HEALTH_INTERVAL must be positive, got %s", c.HealthInterval)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL must not be negative, got %s", c.SessionTTL)
	}
	switch c.NewsTransport {
	case TransportREST, TransportAgent:
	default:
		return fmt.Errorf("unknown NEWS_TRANSPORT %q (want %s or %s)", c.NewsTransport, TransportREST, TransportAgent)
	}
	if c.NewsTransport == TransportAgent && c.NewsAgentID == "" {
		return fmt.Errorf("NEWS_AGENT_ID is required for the agent transport")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
