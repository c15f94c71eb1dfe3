package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// Config holds every setting the API reads from the environment.
type Config struct {
	Port int

	Log    LogConfig
	Gemini GeminiConfig

	// ProteinFactor is grams of protein per kg used for daily targets.
	ProteinFactor float64

	// CacheSize bounds each in-memory store (profiles, food logs, chat sessions).
	CacheSize int

	MaxUploadBytes int64
	MindMaxTurns   int
	RateLimitRPS   float64
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// Load reads the environment, applying defaults for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		Port: 8080,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Gemini: GeminiConfig{
			Model:      "gemini-2.5-flash",
			BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		ProteinFactor:  0.8,
		CacheSize:      1024,
		MaxUploadBytes: 5 << 20,
		MindMaxTurns:   20,
		RateLimitRPS:   5,
	}

	var err error
	if cfg.Port, err = intEnv("PORT", cfg.Port); err != nil {
		return nil, err
	}
	cfg.Log.Level = stringEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = stringEnv("LOG_FORMAT", cfg.Log.Format)

	cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	cfg.Gemini.Model = stringEnv("GEMINI_MODEL", cfg.Gemini.Model)
	cfg.Gemini.BaseURL = stringEnv("GEMINI_BASE_URL", cfg.Gemini.BaseURL)
	if cfg.Gemini.Timeout, err = durationEnv("GEMINI_TIMEOUT", cfg.Gemini.Timeout); err != nil {
		return nil, err
	}
	if cfg.Gemini.MaxRetries, err = intEnv("GEMINI_MAX_RETRIES", cfg.Gemini.MaxRetries); err != nil {
		return nil, err
	}

	if cfg.ProteinFactor, err = floatEnv("NUTRITION_PROTEIN_FACTOR", cfg.ProteinFactor); err != nil {
		return nil, err
	}
	if cfg.CacheSize, err = intEnv("CACHE_SIZE", cfg.CacheSize); err != nil {
		return nil, err
	}
	maxUpload, err := intEnv("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes))
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)
	if cfg.MindMaxTurns, err = intEnv("MIND_MAX_TURNS", cfg.MindMaxTurns); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = floatEnv("RATE_LIMIT_RPS", cfg.RateLimitRPS); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("PORT out of range: %d", c.Port)
	case !(c.ProteinFactor > 0):
		return fmt.Errorf("NUTRITION_PROTEIN_FACTOR must be positive, got %v", c.ProteinFactor)
	case c.CacheSize <= 0:
		return fmt.Errorf("CACHE_SIZE must be positive, got %d", c.CacheSize)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	case c.MindMaxTurns <= 0:
		return fmt.Errorf("MIND_MAX_TURNS must be positive, got %d", c.MindMaxTurns)
	case !(c.RateLimitRPS > 0):
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %v", c.RateLimitRPS)
	case c.Gemini.MaxRetries <= 0:
		return fmt.Errorf("GEMINI_MAX_RETRIES must be positive, got %d", c.Gemini.MaxRetries)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Log.Format)
	}
	return nil
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
