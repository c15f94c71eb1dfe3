package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"PORT", "LOG_LEVEL", "LOG_FORMAT",
	"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL", "GEMINI_TIMEOUT", "GEMINI_MAX_RETRIES",
	"NUTRITION_PROTEIN_FACTOR", "CACHE_SIZE", "MAX_UPLOAD_BYTES", "MIND_MAX_TURNS", "RATE_LIMIT_RPS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, 30*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, 3, cfg.Gemini.MaxRetries)
	assert.Equal(t, 0.8, cfg.ProteinFactor)
	assert.Equal(t, 1024, cfg.CacheSize)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 20, cfg.MindMaxTurns)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_TIMEOUT", "5s")
	t.Setenv("NUTRITION_PROTEIN_FACTOR", "1.2")
	t.Setenv("MIND_MAX_TURNS", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "test-key", cfg.Gemini.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, 1.2, cfg.ProteinFactor)
	assert.Equal(t, 4, cfg.MindMaxTurns)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                     "http",
		"GEMINI_TIMEOUT":           "soon",
		"NUTRITION_PROTEIN_FACTOR": "-1",
		"CACHE_SIZE":               "0",
		"LOG_FORMAT":               "xml",
		"RATE_LIMIT_RPS":           "NaN",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
