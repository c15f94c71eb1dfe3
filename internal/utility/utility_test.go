package utility

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeviceID(t *testing.T) {
	id, err := ParseDeviceID("  4F1C2A6E-8B7D-4C3E-9A10-2B3C4D5E6F70 ")
	require.NoError(t, err)
	assert.Equal(t, "4f1c2a6e-8b7d-4c3e-9a10-2b3c4d5e6f70", id)

	_, err = ParseDeviceID("")
	assert.ErrorContains(t, err, "required")

	_, err = ParseDeviceID("phone-1")
	assert.ErrorContains(t, err, "UUID")
}

func TestDayKey(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	assert.Equal(t, "2026-03-13", DayKey(time.Date(2026, 3, 14, 8, 0, 0, 0, loc)))
}

func TestGetRealIP(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, "203.0.113.7", GetRealIP(c))
}

func TestDeviceMiddleware(t *testing.T) {
	e := echo.New()
	var seen string
	e.GET("/x", func(c echo.Context) error {
		id, err := GetDeviceIDFromContext(c)
		require.NoError(t, err)
		seen = id
		assert.NotNil(t, GetLogger(c))
		return c.NoContent(http.StatusNoContent)
	}, DeviceMiddleware)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(DeviceHeader, "4f1c2a6e-8b7d-4c3e-9a10-2b3c4d5e6f70")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "4f1c2a6e-8b7d-4c3e-9a10-2b3c4d5e6f70", seen)

	// query fallback for websocket clients
	req = httptest.NewRequest(http.MethodGet, "/x?device_id=9d8e7f60-1a2b-4c3d-8e9f-0a1b2c3d4e5f", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "9d8e7f60-1a2b-4c3d-8e9f-0a1b2c3d4e5f", seen)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHub(t *testing.T) {
	hub := NewHub()
	registered := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		hub.Register("s1", conn)
		close(registered)
		// keep reading until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				hub.Unregister("s1", conn)
				return
			}
		}
	}))
	defer srv.Close()

	assert.False(t, hub.SendJSON("s1", "nobody"))

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()
	<-registered

	assert.Equal(t, 1, hub.Count())
	assert.True(t, hub.SendJSON("s1", map[string]int{"mood_score": 70}))

	var got map[string]int
	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, 70, got["mood_score"])
}

func TestHub_StalledClientDoesNotBlockOthers(t *testing.T) {
	hub := NewHub()
	hub.writeWait = 2 * time.Second
	registered := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		hub.Register("slow", conn)
		close(registered)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				hub.Unregister("slow", conn)
				return
			}
		}
	}))
	defer srv.Close()

	// The client never reads, so the server's socket buffer fills up.
	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()
	<-registered

	big := strings.Repeat("x", 1<<20)
	dropped := make(chan struct{})
	go func() {
		for hub.SendJSON("slow", big) {
		}
		close(dropped)
	}()
	time.Sleep(300 * time.Millisecond)

	others := make(chan struct{})
	go func() {
		hub.Count()
		hub.SendJSON("other-session", "hi")
		close(others)
	}()
	select {
	case <-others:
	case <-time.After(time.Second):
		t.Fatal("hub calls for another session waited on a stalled socket")
	}

	select {
	case <-dropped:
	case <-time.After(10 * time.Second):
		t.Fatal("stalled socket was never dropped")
	}
	assert.Equal(t, 0, hub.Count())
}
