package utility

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// PongWait is how long a socket may stay silent before its read fails.
	PongWait   = 60 * time.Second
	pingPeriod = PongWait * 9 / 10
	writeWait  = 10 * time.Second
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Mobile clients connect from arbitrary origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type hubClient struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

// Hub holds active chat sockets: Map[SessionID] -> Connection.
// All data writes go through the hub so a connection never has two writers.
// The hub lock only guards the map; writes hold the connection's own lock.
type Hub struct {
	mu        sync.Mutex
	clients   map[string]*hubClient
	writeWait time.Duration
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*hubClient), writeWait: writeWait}
}

// Register a new client connection, closing any previous one for the session.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[sessionID]; ok && old.conn != conn {
		old.conn.Close()
	}
	h.clients[sessionID] = &hubClient{conn: conn}
	log.Info().Str("session_id", sessionID).Msg("WebSocket Client Connected")
}

// Unregister a client if conn is still the registered one.
func (h *Hub) Unregister(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[sessionID]; ok && cur.conn == conn {
		delete(h.clients, sessionID)
		log.Info().Str("session_id", sessionID).Msg("WebSocket Client Disconnected")
	}
}

// SendJSON pushes v to the session's socket, if one is connected.
// It reports whether a client received the message. A client that does not
// drain its socket within the write deadline is dropped.
func (h *Hub) SendJSON(sessionID string, v any) bool {
	h.mu.Lock()
	cl, ok := h.clients[sessionID]
	h.mu.Unlock()
	if !ok {
		return false
	}

	cl.wmu.Lock()
	_ = cl.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
	err := cl.conn.WriteJSON(v)
	cl.wmu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to send WS message, removing client")
		cl.conn.Close()
		h.Unregister(sessionID, cl.conn)
		return false
	}
	return true
}

// Count returns the number of connected sockets.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// KeepAlive arms conn's read deadline and pings it until done is closed.
// Every pong pushes the read deadline out by PongWait. Call it before the
// first read.
func KeepAlive(conn *websocket.Conn, done <-chan struct{}) {
	_ = conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(PongWait))
	})

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				// WriteControl is safe alongside the hub's data writes.
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()
}
