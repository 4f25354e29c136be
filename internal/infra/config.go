package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	// DatabaseURL is optional; without it the metadata sink is a no-op.
	DatabaseURL string

	StoragePath    string
	StorageBaseURL string

	GeminiAPIKey      string
	GeminiModel       string
	GeminiBaseURL     string
	ClassifierTimeout time.Duration

	MermaidServiceURL string
	ChartServiceURL   string

	RouterMinConfidence float64
	WorkerConcurrency   int
	JobRetention        time.Duration
	SweepInterval       time.Duration
	CacheTTL            time.Duration

	RenderTimeoutSVG     time.Duration
	RenderTimeoutMermaid time.Duration
	RenderTimeoutChart   time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),

		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash-lite"),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		ClassifierTimeout: getEnvDuration("CLASSIFIER_TIMEOUT_SECONDS", 5*time.Second),

		MermaidServiceURL: getEnv("MERMAID_SERVICE_URL", "http://localhost:8000"),
		ChartServiceURL:   getEnv("CHART_SERVICE_URL", "http://localhost:8001"),

		RouterMinConfidence: getEnvFloat("ROUTER_MIN_CONFIDENCE", 0.6),
		WorkerConcurrency:   getEnvInt("WORKER_CONCURRENCY", 8),
		JobRetention:        getEnvDuration("JOB_RETENTION_SECONDS", time.Hour),
		SweepInterval:       getEnvDuration("SWEEP_INTERVAL_SECONDS", 5*time.Minute),
		CacheTTL:            getEnvDuration("CACHE_TTL_SECONDS", time.Hour),

		RenderTimeoutSVG:     getEnvDuration("RENDER_TIMEOUT_SVG_SECONDS", 2*time.Second),
		RenderTimeoutMermaid: getEnvDuration("RENDER_TIMEOUT_MERMAID_SECONDS", 10*time.Second),
		RenderTimeoutChart:   getEnvDuration("RENDER_TIMEOUT_CHART_SECONDS", 15*time.Second),

		HTTPReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT_SECONDS", 15*time.Second),
		HTTPWriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT_SECONDS", 30*time.Second),
		HTTPIdleTimeout:  getEnvDuration("HTTP_IDLE_TIMEOUT_SECONDS", 60*time.Second),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.WorkerConcurrency < 1 {
		return nil, fmt.Errorf("WORKER_CONCURRENCY must be at least 1")
	}
	if cfg.RouterMinConfidence < 0 || cfg.RouterMinConfidence > 1 {
		return nil, fmt.Errorf("ROUTER_MIN_CONFIDENCE must be within [0, 1]")
	}
	if cfg.JobRetention <= 0 {
		return nil, fmt.Errorf("JOB_RETENTION_SECONDS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return time.Second * time.Duration(i)
		}
	}
	return fallback
}
