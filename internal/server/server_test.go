package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Nutrimind/internal/config"
	"Nutrimind/internal/geminiservice"
	"Nutrimind/internal/store"
	"Nutrimind/internal/utility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDevice = "4f1c2a6e-8b7d-4c3e-9a10-2b3c4d5e6f70"

func testConfig() *config.Config {
	return &config.Config{
		Port:           0,
		Gemini:         config.GeminiConfig{Timeout: time.Second, MaxRetries: 1},
		ProteinFactor:  0.8,
		CacheSize:      16,
		MaxUploadBytes: 1 << 20,
		MindMaxTurns:   5,
		RateLimitRPS:   1,
	}
}

func newTestHandler(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	st := store.NewService(cfg.CacheSize)
	t.Cleanup(st.Close)

	// No API key: AI routes answer 503 without leaving the process.
	s, err := New(cfg, st, geminiservice.NewClient(cfg.Gemini))
	require.NoError(t, err)
	return s.RegisterRoutes()
}

func serve(h http.Handler, method, path, device, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if device != "" {
		req.Header.Set(utility.DeviceHeader, device)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthHandler(t *testing.T) {
	h := newTestHandler(t, testConfig())

	rec := serve(h, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "online", body["status"])
	assert.Equal(t, false, body["ai_configured"])

	st, ok := body["store"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "up", st["status"])
	assert.Equal(t, "0", st["profiles"])
	assert.Contains(t, body, "runtime")
	assert.Contains(t, body, "memory")
	assert.Contains(t, body, "cpu")

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newTestHandler(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestDeviceRoutesRequireHeader(t *testing.T) {
	h := newTestHandler(t, testConfig())

	rec := serve(h, http.MethodGet, "/dashboard", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), utility.DeviceHeader)

	rec = serve(h, http.MethodGet, "/dashboard", testDevice, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownPathIsNotFound(t *testing.T) {
	h := newTestHandler(t, testConfig())

	rec := serve(h, http.MethodGet, "/no-such-route", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h, http.MethodGet, "/no-such-route", testDevice, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfileFlow(t *testing.T) {
	h := newTestHandler(t, testConfig())

	rec := serve(h, http.MethodPut, "/profile", testDevice,
		`{"gender":"male","age":28,"weight_kg":75,"height_cm":175,"activity_level":"moderate"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(h, http.MethodGet, "/dashboard", testDevice, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var dash struct {
		ProfileComplete bool `json:"profile_complete"`
		Targets         struct {
			Calories int `json:"daily_calorie_target"`
		} `json:"targets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.True(t, dash.ProfileComplete)
	assert.Equal(t, 2649, dash.Targets.Calories)
}

func TestAIRoutesWithoutKey(t *testing.T) {
	h := newTestHandler(t, testConfig())

	rec := serve(h, http.MethodPost, "/food/analyze", testDevice, `{"image_base64":"iVBORw0KGgo="}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAIRateLimit(t *testing.T) {
	h := newTestHandler(t, testConfig())

	// RateLimitRPS 1 allows a burst of 2.
	for i := 0; i < 2; i++ {
		rec := serve(h, http.MethodPost, "/mind/sessions/nope/messages", testDevice, `{"message":"hi"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
	rec := serve(h, http.MethodPost, "/mind/sessions/nope/messages", testDevice, `{"message":"hi"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// other devices have their own bucket
	rec = serve(h, http.MethodPost, "/mind/sessions/nope/messages", "9d8e7f60-1a2b-4c3d-8e9f-0a1b2c3d4e5f", `{"message":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// non-AI routes are not limited
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/food/log", testDevice, "").Code)
}

func TestUploadBodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 1024
	h := newTestHandler(t, cfg)

	big := `{"image_base64":"` + strings.Repeat("A", 200*1024) + `"}`
	rec := serve(h, http.MethodPost, "/food/analyze", testDevice, big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestNewRejectsBadProteinFactor(t *testing.T) {
	cfg := testConfig()
	cfg.ProteinFactor = 0
	_, err := New(cfg, store.NewService(1), nil)
	assert.Error(t, err)
}

func TestNewServer(t *testing.T) {
	cfg := testConfig()
	cfg.Port = 9090
	srv, err := NewServer(cfg, store.NewService(1))
	require.NoError(t, err)
	assert.Equal(t, ":9090", srv.Addr)
	assert.NotNil(t, srv.Handler)
}
