package analysis

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kozaktomas/faceratio/internal/geometry"
)

func TestSessionManager_Lifecycle(t *testing.T) {
	sm := NewSessionManager(time.Minute, 10, 0, 0)

	s, err := sm.CreateSession("device-1")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if s.ID == "" || s.DeviceID != "device-1" {
		t.Errorf("session = %+v", s.ToJSON())
	}

	got, err := sm.GetSession(s.ID)
	if err != nil || got != s {
		t.Fatalf("GetSession() = %v, %v", got, err)
	}

	if !sm.DeleteSession(s.ID) {
		t.Error("DeleteSession() = false for an existing session")
	}
	if sm.DeleteSession(s.ID) {
		t.Error("DeleteSession() = true for a removed session")
	}
	if _, err := sm.GetSession(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionManager_Expiry(t *testing.T) {
	sm := NewSessionManager(time.Minute, 10, 0, 0)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	sm.now = func() time.Time { return now }

	a, _ := sm.CreateSession("a")
	now = now.Add(30 * time.Second)
	b, _ := sm.CreateSession("b")
	now = now.Add(45 * time.Second)

	if _, err := sm.GetSession(a.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expired GetSession() error = %v", err)
	}
	if _, err := sm.GetSession(b.ID); err != nil {
		t.Errorf("live GetSession() error = %v", err)
	}

	now = now.Add(time.Minute)
	if n := sm.Cleanup(); n != 1 {
		t.Errorf("Cleanup() = %d, want 1", n)
	}
	if sm.Len() != 0 {
		t.Errorf("Len() = %d, want 0", sm.Len())
	}
}

func TestSessionManager_ExpiryCountsFromCreation(t *testing.T) {
	sm := NewSessionManager(time.Minute, 10, 0, 0)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	sm.now = func() time.Time { return now }

	s, _ := sm.CreateSession("a")
	want := s.ExpiresAt

	now = now.Add(50 * time.Second)
	s.Push([]geometry.LandmarkSet{frontalFace()})
	if _, err := sm.GetSession(s.ID); err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if !s.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want unchanged %v", s.ExpiresAt, want)
	}

	now = now.Add(11 * time.Second)
	if _, err := sm.GetSession(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionManager_TakeSession(t *testing.T) {
	sm := NewSessionManager(time.Minute, 10, 0, 0)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	sm.now = func() time.Time { return now }

	s, _ := sm.CreateSession("device-1")

	got, err := sm.TakeSession(s.ID)
	if err != nil || got != s {
		t.Fatalf("TakeSession() = %v, %v", got, err)
	}
	if _, err := sm.TakeSession(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second TakeSession() error = %v, want ErrSessionNotFound", err)
	}
	if _, err := sm.GetSession(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession() on a taken session error = %v", err)
	}

	sm.Restore(s)
	if _, err := sm.GetSession(s.ID); err != nil {
		t.Errorf("GetSession() after Restore error = %v", err)
	}

	// An expired session is neither handed out nor restored.
	taken, _ := sm.TakeSession(s.ID)
	now = now.Add(2 * time.Minute)
	sm.Restore(taken)
	if sm.Len() != 0 {
		t.Errorf("Len() = %d, want 0", sm.Len())
	}
	other, _ := sm.CreateSession("device-2")
	now = now.Add(2 * time.Minute)
	if _, err := sm.TakeSession(other.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("TakeSession() on an expired session error = %v", err)
	}
}

func TestSessionManager_TakeSessionConcurrent(t *testing.T) {
	sm := NewSessionManager(time.Minute, 10, 0, 0)
	s, _ := sm.CreateSession("device-1")

	var (
		wg  sync.WaitGroup
		won atomic.Int32
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := sm.TakeSession(s.ID); err == nil {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	if won.Load() != 1 {
		t.Errorf("%d callers took the session, want 1", won.Load())
	}
}

func TestSessionManager_Capacity(t *testing.T) {
	sm := NewSessionManager(time.Minute, 2, 0, 0)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	sm.now = func() time.Time { return now }

	sm.CreateSession("a")
	sm.CreateSession("b")
	if _, err := sm.CreateSession("c"); !errors.Is(err, ErrTooManySessions) {
		t.Errorf("CreateSession() error = %v, want ErrTooManySessions", err)
	}

	// Expired sessions are reclaimed to make room.
	now = now.Add(2 * time.Minute)
	if _, err := sm.CreateSession("c"); err != nil {
		t.Errorf("CreateSession() after expiry error = %v", err)
	}
}

func TestSession_ResetAndJSON(t *testing.T) {
	sm := NewSessionManager(0, 0, 4, 2)
	s, _ := sm.CreateSession("device-1")
	s.Push([]geometry.LandmarkSet{frontalFace(), frontalFace()})
	if s.Buffered() != 2 {
		t.Fatalf("Buffered() = %d, want 2", s.Buffered())
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var decoded SessionData
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if decoded.SessionID != s.ID || decoded.Buffered != 2 || decoded.Capacity != 4 || decoded.MinSamples != 2 {
		t.Errorf("SessionData = %+v", decoded)
	}

	s.Reset()
	if s.Buffered() != 0 {
		t.Errorf("Buffered() after Reset = %d", s.Buffered())
	}
}
