package store

import (
	"sync"
	"time"
)

// ChatMessage is one turn of a mood assessment conversation.
type ChatMessage struct {
	Role    string    `json:"role"` // "user" or "model"
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

// MindSession is a mood assessment conversation. It is shared between the
// HTTP and websocket handlers, so every access goes through Lock/Unlock.
type MindSession struct {
	mu sync.Mutex

	SessionID string        `json:"session_id"`
	DeviceID  string        `json:"-"`
	Messages  []ChatMessage `json:"messages"`
	UserTurns int           `json:"user_turns"`
	MoodScore int           `json:"mood_score"`
	MoodLabel string        `json:"mood_label,omitempty"`
	Complete  bool          `json:"assessment_complete"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (m *MindSession) Lock()   { m.mu.Lock() }
func (m *MindSession) Unlock() { m.mu.Unlock() }

// Snapshot returns a copy that is safe to serialize without holding the lock.
// Callers must hold the lock.
func (m *MindSession) Snapshot() MindSessionView {
	msgs := make([]ChatMessage, len(m.Messages))
	copy(msgs, m.Messages)
	return MindSessionView{
		SessionID: m.SessionID,
		Messages:  msgs,
		UserTurns: m.UserTurns,
		MoodScore: m.MoodScore,
		MoodLabel: m.MoodLabel,
		Complete:  m.Complete,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// MindSessionView is the serializable form of a MindSession.
type MindSessionView struct {
	SessionID string        `json:"session_id"`
	Messages  []ChatMessage `json:"messages"`
	UserTurns int           `json:"user_turns"`
	MoodScore int           `json:"mood_score"`
	MoodLabel string        `json:"mood_label,omitempty"`
	Complete  bool          `json:"assessment_complete"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
