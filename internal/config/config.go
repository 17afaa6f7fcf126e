package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Remote library API; empty means write to the local SQLite store.
	LibraryURL    string
	LibraryAPIKey string
	HTTPTimeout   time.Duration

	// Local store
	DBPath string

	// Auth for the serve command
	APIKey string

	// Corpus profile file; empty means built-in defaults
	ProfilePath string

	// Full-text segment index; empty disables search
	SearchIndexPath string

	// Worker pool
	WorkerCount        int
	MaxQueueSize       int
	MaxConcurrentStore int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	Debug bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		LibraryURL:    os.Getenv("LIBRARY_URL"),
		LibraryAPIKey: os.Getenv("LIBRARY_API_KEY"),
		HTTPTimeout:   envDuration("HTTP_TIMEOUT", 30*time.Second),

		DBPath: envOr("CORPUSLOAD_DB", "corpusload.db"),

		APIKey: os.Getenv("CORPUSLOAD_API_KEY"),

		ProfilePath: os.Getenv("CORPUSLOAD_PROFILE"),

		SearchIndexPath: os.Getenv("CORPUSLOAD_SEARCH_INDEX"),

		WorkerCount:        envInt("WORKER_COUNT", 2),
		MaxQueueSize:       envInt("MAX_QUEUE_SIZE", 32),
		MaxConcurrentStore: envInt("MAX_CONCURRENT_STORE", 4),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 104857600), // 100MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		Debug: envBool("CORPUSLOAD_DEBUG", false),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 32
	}
	if cfg.MaxConcurrentStore <= 0 {
		cfg.MaxConcurrentStore = 4
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 104857600
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}

	return cfg
}

// Validate checks settings every command needs.
func (c Config) Validate() error {
	if c.LibraryURL != "" {
		u, err := url.Parse(c.LibraryURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("LIBRARY_URL must be an http(s) URL, got %q", c.LibraryURL)
		}
		if c.LibraryAPIKey == "" {
			return fmt.Errorf("LIBRARY_API_KEY is required when LIBRARY_URL is set")
		}
	}
	if c.LibraryURL == "" && c.DBPath == "" {
		return fmt.Errorf("CORPUSLOAD_DB is required when LIBRARY_URL is not set")
	}
	return nil
}

// ValidateServe checks the settings the HTTP server needs on top of Validate.
func (c Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("CORPUSLOAD_API_KEY is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("CORPUSLOAD_DB is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
