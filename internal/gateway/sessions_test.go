package gateway

import (
	"testing"
	"time"
)

func TestSessionManagerCap(t *testing.T) {
	sm := NewSessionManager(2)

	if err := sm.Create(&Session{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := sm.Create(&Session{ID: "b"}); err != nil {
		t.Fatal(err)
	}
	if err := sm.Create(&Session{ID: "c"}); err == nil {
		t.Error("creating past the cap should fail")
	}
	if sm.Count() != 2 {
		t.Errorf("Count = %d, want 2", sm.Count())
	}

	if !sm.Delete("a") {
		t.Error("delete should report the session existed")
	}
	if err := sm.Create(&Session{ID: "c"}); err != nil {
		t.Errorf("create after delete failed: %v", err)
	}
}

func TestSessionManagerGetAndList(t *testing.T) {
	sm := NewSessionManager(10)
	s := &Session{ID: "s1", DeviceID: 42, UserID: "u1"}
	if err := sm.Create(s); err != nil {
		t.Fatal(err)
	}

	got, ok := sm.Get("s1")
	if !ok || got.DeviceID != 42 {
		t.Errorf("Get = %+v, %v", got, ok)
	}
	if _, ok := sm.Get("nope"); ok {
		t.Error("unknown id should not be found")
	}
	if len(sm.List()) != 1 {
		t.Errorf("List = %d entries", len(sm.List()))
	}
}

func TestSessionManagerCloseExpired(t *testing.T) {
	sm := NewSessionManager(10)
	now := time.Now()

	_ = sm.Create(&Session{ID: "live", ExpiresAt: now.Add(time.Hour)})
	_ = sm.Create(&Session{ID: "dead", ExpiresAt: now.Add(-time.Minute)})

	expired := sm.CloseExpired()
	if len(expired) != 1 || expired[0].ID != "dead" {
		t.Errorf("expired = %+v", expired)
	}
	if sm.Count() != 1 {
		t.Errorf("Count after reap = %d, want 1", sm.Count())
	}
	if _, ok := sm.Get("live"); !ok {
		t.Error("live session should survive the reap")
	}
}

func TestGenerateSessionID(t *testing.T) {
	a, b := generateSessionID(), generateSessionID()
	if len(a) != 32 {
		t.Errorf("session id length = %d, want 32", len(a))
	}
	if a == b {
		t.Error("session ids should be unique")
	}
}
