/*
Package store keeps the per-device state of the API in bounded, expiring
in-memory caches. Nothing is written to disk; a restart forgets everything.
*/
package store

import (
	"strconv"
	"sync"
	"time"

	"Nutrimind/internal/nutrition"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

const (
	profileTTL = 30 * 24 * time.Hour
	foodLogTTL = 48 * time.Hour
	sessionTTL = 24 * time.Hour
)

// Service represents the in-memory state shared by the handlers.
type Service interface {
	// Health returns a map of cache statistics.
	Health() map[string]string

	SaveProfile(rec ProfileRecord)
	GetProfile(deviceID string) (ProfileRecord, bool)

	AppendFood(deviceID, day string, entry FoodEntry) FoodEntry
	FoodLog(deviceID, day string) []FoodEntry
	DeleteFood(deviceID, day, entryID string) bool

	CreateSession(deviceID string) *MindSession
	GetSession(sessionID string) (*MindSession, bool)

	// Close drops every cached item.
	Close()
}

// ProfileRecord is a device's profile with the targets computed from it.
type ProfileRecord struct {
	DeviceID  string            `json:"device_id"`
	Name      string            `json:"name,omitempty"`
	Profile   nutrition.Profile `json:"profile"`
	Targets   nutrition.Targets `json:"targets"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// FoodEntry is a logged meal item.
type FoodEntry struct {
	EntryID    string              `json:"entry_id"`
	LoggedAt   time.Time           `json:"logged_at"`
	Source     string              `json:"source"` // "photo" or "manual"
	Confidence float64             `json:"confidence,omitempty"`
	Meal       nutrition.MealEntry `json:"meal"`
}

type service struct {
	profiles *expirable.LRU[string, ProfileRecord]
	foodLogs *expirable.LRU[string, []FoodEntry]
	sessions *expirable.LRU[string, *MindSession]

	// foodMu serializes read-modify-write on food logs.
	foodMu sync.Mutex
}

// NewService returns a Service whose caches each hold at most size items.
func NewService(size int) Service {
	if size <= 0 {
		size = 1
	}
	return &service{
		profiles: expirable.NewLRU[string, ProfileRecord](size, nil, profileTTL),
		foodLogs: expirable.NewLRU[string, []FoodEntry](size, nil, foodLogTTL),
		sessions: expirable.NewLRU[string, *MindSession](size, func(id string, _ *MindSession) {
			log.Debug().Str("session_id", id).Msg("mind session evicted")
		}, sessionTTL),
	}
}

func (s *service) SaveProfile(rec ProfileRecord) {
	s.profiles.Add(rec.DeviceID, rec)
}

func (s *service) GetProfile(deviceID string) (ProfileRecord, bool) {
	return s.profiles.Get(deviceID)
}

func foodKey(deviceID, day string) string {
	return deviceID + "/" + day
}

// AppendFood stores entry, assigning an ID and timestamp when missing.
func (s *service) AppendFood(deviceID, day string, entry FoodEntry) FoodEntry {
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = time.Now().UTC()
	}

	s.foodMu.Lock()
	defer s.foodMu.Unlock()

	key := foodKey(deviceID, day)
	current, _ := s.foodLogs.Get(key)
	next := make([]FoodEntry, len(current), len(current)+1)
	copy(next, current)
	s.foodLogs.Add(key, append(next, entry))
	return entry
}

// FoodLog returns a copy of the day's entries in insertion order.
func (s *service) FoodLog(deviceID, day string) []FoodEntry {
	s.foodMu.Lock()
	defer s.foodMu.Unlock()

	current, _ := s.foodLogs.Get(foodKey(deviceID, day))
	out := make([]FoodEntry, len(current))
	copy(out, current)
	return out
}

func (s *service) DeleteFood(deviceID, day, entryID string) bool {
	s.foodMu.Lock()
	defer s.foodMu.Unlock()

	key := foodKey(deviceID, day)
	current, ok := s.foodLogs.Get(key)
	if !ok {
		return false
	}
	next := make([]FoodEntry, 0, len(current))
	found := false
	for _, e := range current {
		if e.EntryID == entryID {
			found = true
			continue
		}
		next = append(next, e)
	}
	if found {
		s.foodLogs.Add(key, next)
	}
	return found
}

func (s *service) CreateSession(deviceID string) *MindSession {
	now := time.Now().UTC()
	sess := &MindSession{
		SessionID: uuid.NewString(),
		DeviceID:  deviceID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions.Add(sess.SessionID, sess)
	return sess
}

func (s *service) GetSession(sessionID string) (*MindSession, bool) {
	return s.sessions.Get(sessionID)
}

// Health reports how full each cache is.
func (s *service) Health() map[string]string {
	stats := make(map[string]string)
	stats["status"] = "up"
	stats["profiles"] = strconv.Itoa(s.profiles.Len())
	stats["food_logs"] = strconv.Itoa(s.foodLogs.Len())
	stats["mind_sessions"] = strconv.Itoa(s.sessions.Len())
	return stats
}

func (s *service) Close() {
	s.profiles.Purge()
	s.foodLogs.Purge()
	s.sessions.Purge()
	log.Info().Msg("In-memory store purged")
}
