package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kozaktomas/faceratio/internal/logger"
)

const (
	// DefaultSessionTTL is how long a capture session lives, counted from
	// creation. Pushing frames does not extend it.
	DefaultSessionTTL = 10 * time.Minute
	// DefaultMaxSessions bounds the number of live capture sessions.
	DefaultMaxSessions = 10000
)

var (
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when the session registry is full.
	ErrTooManySessions = errors.New("too many active sessions")
)

// SessionManager is the registry of live capture sessions.
type SessionManager struct {
	sessions   map[string]*Session
	mu         sync.RWMutex
	ttl        time.Duration
	max        int
	capacity   int
	minSamples int
	now        func() time.Time
}

// NewSessionManager creates a registry. Non-positive values use the defaults.
func NewSessionManager(ttl time.Duration, maxSessions, capacity, minSamples int) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &SessionManager{
		sessions:   make(map[string]*Session),
		ttl:        ttl,
		max:        maxSessions,
		capacity:   capacity,
		minSamples: minSamples,
		now:        time.Now,
	}
}

// CreateSession starts a capture session for a device
func (sm *SessionManager) CreateSession(deviceID string) (*Session, error) {
	now := sm.now()
	session := newSession(deviceID, sm.capacity, sm.minSamples)
	session.CreatedAt = now
	session.ExpiresAt = now.Add(sm.ttl)

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if len(sm.sessions) >= sm.max {
		sm.removeExpiredLocked(now)
		if len(sm.sessions) >= sm.max {
			return nil, ErrTooManySessions
		}
	}
	sm.sessions[session.ID] = session
	return session, nil
}

// GetSession retrieves a live session by ID
func (sm *SessionManager) GetSession(sessionID string) (*Session, error) {
	sm.mu.RLock()
	session, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if sm.now().After(session.ExpiresAt) {
		sm.DeleteSession(sessionID)
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// TakeSession removes a live session from the registry and hands it to the
// caller, so only one completion can run per session. Use Restore to put it
// back when the session should stay open.
func (sm *SessionManager) TakeSession(sessionID string) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	delete(sm.sessions, sessionID)
	if sm.now().After(session.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Restore re-registers a session taken with TakeSession. Expired sessions
// are dropped.
func (sm *SessionManager) Restore(session *Session) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.now().After(session.ExpiresAt) {
		return
	}
	sm.sessions[session.ID] = session
}

// DeleteSession removes a session and reports whether it existed
func (sm *SessionManager) DeleteSession(sessionID string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	_, ok := sm.sessions[sessionID]
	delete(sm.sessions, sessionID)
	return ok
}

// Len returns the number of registered sessions, expired ones included.
func (sm *SessionManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Cleanup removes expired sessions and returns how many were removed.
func (sm *SessionManager) Cleanup() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.removeExpiredLocked(sm.now())
}

func (sm *SessionManager) removeExpiredLocked(now time.Time) int {
	var n int
	for id, s := range sm.sessions {
		if now.After(s.ExpiresAt) {
			delete(sm.sessions, id)
			n++
		}
	}
	return n
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (sm *SessionManager) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sm.Cleanup(); n > 0 {
					logger.Debug("expired capture sessions removed", logger.LoggerOptions{Key: "count", Data: n})
				}
			}
		}
	}()
}
