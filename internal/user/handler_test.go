package user

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"Nutrimind/internal/geminiservice"
	"Nutrimind/internal/store"
	"Nutrimind/internal/utility"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	deviceA = "4f1c2a6e-8b7d-4c3e-9a10-2b3c4d5e6f70"
	deviceB = "9d8e7f60-1a2b-4c3d-8e9f-0a1b2c3d4e5f"
)

var fixedNow = time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)

// fakeAI records what the handlers send and replays canned answers.
type fakeAI struct {
	mu sync.Mutex

	configured bool

	food     *geminiservice.FoodAnalysis
	foodErr  error
	gotImage []byte
	gotMime  string
	gotNote  string

	turns     []geminiservice.MindTurn
	mindErr   error
	histories [][]store.ChatMessage

	insight    *geminiservice.Insight
	insightErr error
	gotInsight *geminiservice.InsightContext
}

func (f *fakeAI) Configured() bool { return f.configured }

func (f *fakeAI) AnalyzeFood(_ context.Context, _ *zerolog.Logger, image []byte, mimeType, note string) (*geminiservice.FoodAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotImage, f.gotMime, f.gotNote = image, mimeType, note
	if f.foodErr != nil {
		return nil, f.foodErr
	}
	out := *f.food
	return &out, nil
}

func (f *fakeAI) MindChat(_ context.Context, _ *zerolog.Logger, history []store.ChatMessage) (*geminiservice.MindTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories = append(f.histories, history)
	if f.mindErr != nil {
		return nil, f.mindErr
	}
	if len(f.turns) == 0 {
		return &geminiservice.MindTurn{Reply: "Tell me more.", MoodScore: 50, MoodLabel: "okay"}, nil
	}
	turn := f.turns[0]
	f.turns = f.turns[1:]
	return &turn, nil
}

func (f *fakeAI) DashboardInsight(_ context.Context, _ *zerolog.Logger, in geminiservice.InsightContext) (*geminiservice.Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotInsight = &in
	if f.insightErr != nil {
		return nil, f.insightErr
	}
	return f.insight, nil
}

type testEnv struct {
	e     *echo.Echo
	h     *Handler
	store store.Service
	ai    *fakeAI
}

func newTestEnv(t *testing.T, ai *fakeAI) *testEnv {
	t.Helper()
	if ai == nil {
		ai = &fakeAI{configured: true}
	}
	st := store.NewService(64)
	t.Cleanup(st.Close)

	h := NewHandler(st, ai, nil, nil, Options{MaxUploadBytes: 1024, MindMaxTurns: 3})
	h.now = func() time.Time { return fixedNow }

	e := echo.New()
	g := e.Group("", utility.DeviceMiddleware)
	g.PUT("/profile", h.UpsertProfileHandler)
	g.GET("/profile", h.GetProfileHandler)
	g.POST("/nutrition/targets", h.CalculateTargetsHandler)
	g.POST("/food/analyze", h.AnalyzeFoodHandler)
	g.POST("/food/log", h.LogFoodHandler)
	g.GET("/food/log", h.GetFoodLogHandler)
	g.DELETE("/food/log/:entry_id", h.DeleteFoodLogHandler)
	g.GET("/dashboard", h.GetDashboardHandler)
	g.POST("/mind/sessions", h.StartMindSessionHandler)
	g.GET("/mind/sessions/:session_id", h.GetMindSessionHandler)
	g.POST("/mind/sessions/:session_id/messages", h.SendMindMessageHandler)
	g.GET("/mind/sessions/:session_id/ws", h.MindSocketHandler)

	return &testEnv{e: e, h: h, store: st, ai: ai}
}

// do sends a JSON request as device. An empty device omits the header.
func (env *testEnv) do(t *testing.T, method, path, device string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if device != "" {
		req.Header.Set(utility.DeviceHeader, device)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestDeviceHeaderRequired(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/profile", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/profile", "not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "UUID")
}
