package user

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"Nutrimind/internal/geminiservice"
	"Nutrimind/internal/store"
	"Nutrimind/internal/utility"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	maxMindMessageRunes = 2000
	mindTurnTimeout     = 60 * time.Second
)

var (
	errSessionClosed = errors.New("this check-in is complete; start a new session to talk again")
	errTurnLimit     = errors.New("this check-in reached its message limit; start a new session")
	errEmptyMessage  = errors.New("message is required")
	errLongMessage   = errors.New("message is too long")
)

/* =================================================================================
							DTOs (Data Transfer Objects)
=================================================================================*/

type MindMessageRequest struct {
	Message string `json:"message"`
}

// MindTurnResponse is sent for every answered user message, over HTTP or the socket.
type MindTurnResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	MoodScore int    `json:"mood_score"`
	MoodLabel string `json:"mood_label"`
	Complete  bool   `json:"assessment_complete"`
	TurnsLeft int    `json:"turns_left"`
}

/* =================================================================================
									HANDLERS
=================================================================================*/

// StartMindSessionHandler handles POST /mind/sessions.
func (h *Handler) StartMindSessionHandler(c echo.Context) error {
	log := utility.GetLogger(c)

	devID, err := deviceID(c)
	if err != nil {
		return err
	}

	sess := h.store.CreateSession(devID)
	sess.Lock()
	sess.Messages = append(sess.Messages, store.ChatMessage{
		Role:    "model",
		Content: geminiservice.MindGreeting,
		SentAt:  sess.CreatedAt,
	})
	view := sess.Snapshot()
	sess.Unlock()

	log.Info().Str("session_id", view.SessionID).Msg("Mind session started")
	return c.JSON(http.StatusCreated, view)
}

// GetMindSessionHandler handles GET /mind/sessions/:session_id.
func (h *Handler) GetMindSessionHandler(c echo.Context) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return err
	}

	sess.Lock()
	view := sess.Snapshot()
	sess.Unlock()
	return c.JSON(http.StatusOK, view)
}

// SendMindMessageHandler handles POST /mind/sessions/:session_id/messages.
func (h *Handler) SendMindMessageHandler(c echo.Context) error {
	log := utility.GetLogger(c)

	sess, err := h.ownedSession(c)
	if err != nil {
		return err
	}
	if !h.aiReady() {
		return aiError(c, geminiservice.ErrNotConfigured)
	}

	var req MindMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	resp, err := h.mindTurn(c.Request().Context(), log, sess, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, errSessionClosed), errors.Is(err, errTurnLimit):
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, errEmptyMessage), errors.Is(err, errLongMessage):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error(), "field": "message"})
		default:
			log.Error().Err(err).Str("session_id", sess.SessionID).Msg("Mind chat turn failed")
			return aiError(c, err)
		}
	}

	// Mirror to a connected socket so a second screen stays in sync.
	h.hub.SendJSON(resp.SessionID, resp)
	return c.JSON(http.StatusOK, resp)
}

// MindSocketHandler handles GET /mind/sessions/:session_id/ws.
// Every text frame is a user message; every answer is written back as JSON.
func (h *Handler) MindSocketHandler(c echo.Context) error {
	log := utility.GetLogger(c)

	sess, err := h.ownedSession(c)
	if err != nil {
		return err
	}
	sessionID := sess.SessionID

	ws, err := utility.Upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return nil
	}
	done := make(chan struct{})
	utility.KeepAlive(ws, done)

	h.hub.Register(sessionID, ws)
	defer func() {
		close(done)
		h.hub.Unregister(sessionID, ws)
		ws.Close()
	}()

	for {
		// A model call may outlast the previous deadline.
		_ = ws.SetReadDeadline(time.Now().Add(utility.PongWait))
		msgType, payload, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("WebSocket closed unexpectedly")
			}
			return nil
		}
		if msgType != websocket.TextMessage {
			continue
		}

		if !h.aiReady() {
			h.hub.SendJSON(sessionID, map[string]string{"error": "AI features are not configured on this server"})
			continue
		}

		// The request context ends with the hijacked connection, so each
		// turn gets its own deadline.
		ctx, cancel := context.WithTimeout(context.Background(), mindTurnTimeout)
		resp, err := h.mindTurn(ctx, log, sess, string(payload))
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("Mind chat socket turn failed")
			h.hub.SendJSON(sessionID, map[string]string{"error": socketError(err)})
			continue
		}
		h.hub.SendJSON(sessionID, resp)
	}
}

/* =================================================================================
								HELPER FUNCTIONS
=================================================================================*/

// ownedSession loads the path's session. Another device's session is
// reported as missing.
func (h *Handler) ownedSession(c echo.Context) (*store.MindSession, error) {
	devID, err := deviceID(c)
	if err != nil {
		return nil, err
	}
	sess, ok := h.store.GetSession(c.Param("session_id"))
	if !ok || sess.DeviceID != devID {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Mind session not found")
	}
	return sess, nil
}

// mindTurn runs one user message through the model. The session lock is held
// for the whole turn so HTTP and socket messages can't interleave. A failed
// model call leaves the transcript untouched.
func (h *Handler) mindTurn(ctx context.Context, log *zerolog.Logger, sess *store.MindSession, text string) (*MindTurnResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errEmptyMessage
	}
	if utf8.RuneCountInString(text) > maxMindMessageRunes {
		return nil, errLongMessage
	}

	sess.Lock()
	defer sess.Unlock()

	if sess.Complete {
		return nil, errSessionClosed
	}
	if sess.UserTurns >= h.opts.MindMaxTurns {
		return nil, errTurnLimit
	}

	userMsg := store.ChatMessage{Role: "user", Content: text, SentAt: h.now()}
	history := make([]store.ChatMessage, 0, len(sess.Messages)+1)
	history = append(history, sess.Messages...)
	history = append(history, userMsg)

	turn, err := h.ai.MindChat(ctx, log, history)
	if err != nil {
		return nil, err
	}

	now := h.now()
	sess.Messages = append(history, store.ChatMessage{Role: "model", Content: turn.Reply, SentAt: now})
	sess.UserTurns++
	sess.MoodScore = turn.MoodScore
	sess.MoodLabel = turn.MoodLabel
	sess.Complete = turn.Complete || sess.UserTurns >= h.opts.MindMaxTurns
	sess.UpdatedAt = now

	log.Info().
		Str("session_id", sess.SessionID).
		Int("user_turns", sess.UserTurns).
		Int("mood_score", sess.MoodScore).
		Bool("complete", sess.Complete).
		Msg("Mind chat turn")

	return &MindTurnResponse{
		SessionID: sess.SessionID,
		Reply:     turn.Reply,
		MoodScore: sess.MoodScore,
		MoodLabel: sess.MoodLabel,
		Complete:  sess.Complete,
		TurnsLeft: h.opts.MindMaxTurns - sess.UserTurns,
	}, nil
}

func socketError(err error) string {
	switch {
	case errors.Is(err, errSessionClosed), errors.Is(err, errTurnLimit),
		errors.Is(err, errEmptyMessage), errors.Is(err, errLongMessage):
		return err.Error()
	case errors.Is(err, geminiservice.ErrNotConfigured):
		return "AI features are not configured on this server"
	default:
		return "AI service failed to respond"
	}
}
