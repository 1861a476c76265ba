package gateway

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Session is an active terminal session through the gateway.
type Session struct {
	ID         string    `json:"id"`
	DeviceID   int       `json:"device_id"`
	DeviceName string    `json:"device_name,omitempty"`
	UserID     string    `json:"user_id"`
	Target     string    `json:"target"`
	SourceIP   string    `json:"source_ip,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`

	BytesIn  atomic.Int64 `json:"-"`
	BytesOut atomic.Int64 `json:"-"`
}

// SessionManager tracks active sessions with a hard cap. A sync.Map
// fits the access pattern: many short reads from handlers, rare writes.
type SessionManager struct {
	sessions    sync.Map
	maxSessions int
}

// NewSessionManager creates a manager with the given session cap.
func NewSessionManager(limit int) *SessionManager {
	return &SessionManager{maxSessions: limit}
}

// Create adds a session, failing when the cap is reached.
func (sm *SessionManager) Create(session *Session) error {
	if sm.Count() >= sm.maxSessions {
		return fmt.Errorf("maximum sessions reached (%d)", sm.maxSessions)
	}
	sm.sessions.Store(session.ID, session)
	return nil
}

// Get returns a session by ID.
func (sm *SessionManager) Get(id string) (*Session, bool) {
	val, ok := sm.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return val.(*Session), true
}

// List returns all active sessions.
func (sm *SessionManager) List() []*Session {
	var result []*Session
	sm.sessions.Range(func(_, value any) bool {
		result = append(result, value.(*Session))
		return true
	})
	return result
}

// Delete removes a session by ID.
func (sm *SessionManager) Delete(id string) bool {
	_, loaded := sm.sessions.LoadAndDelete(id)
	return loaded
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	count := 0
	sm.sessions.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// CloseExpired removes and returns all sessions past their expiry.
func (sm *SessionManager) CloseExpired() []*Session {
	now := time.Now()
	var expired []*Session
	sm.sessions.Range(func(key, value any) bool {
		s := value.(*Session)
		if now.After(s.ExpiresAt) {
			sm.sessions.Delete(key)
			expired = append(expired, s)
		}
		return true
	})
	return expired
}

func generateSessionID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
