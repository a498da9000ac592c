package memory

import (
	"encoding/json"
	"testing"

	"quiz-live-service/internal/domain"
)

func TestHubRoomBroadcastAndTargetedSend(t *testing.T) {
	hub := NewHub(4)
	alice := hub.Register("h-alice")
	bob := hub.Register("h-bob")
	other := hub.Register("h-other")
	hub.Join("QZ1", "h-alice")
	hub.Join("QZ1", "h-bob")
	hub.Join("QZ2", "h-other")

	hub.Send("QZ1", domain.NewEvent(domain.SessionStarted{Code: "QZ1"}))
	if typ := eventType(t, <-alice); typ != domain.EventSessionStarted {
		t.Fatalf("expected sessionStarted for alice, got %s", typ)
	}
	if typ := eventType(t, <-bob); typ != domain.EventSessionStarted {
		t.Fatalf("expected sessionStarted for bob, got %s", typ)
	}
	if len(other) != 0 {
		t.Fatalf("expected no message for other room")
	}

	hub.SendTo("h-bob", domain.NewEvent(domain.ErrorPayload{Kind: "validation", Message: "nope"}))
	if typ := eventType(t, <-bob); typ != domain.EventError {
		t.Fatalf("expected error for bob, got %s", typ)
	}
	if len(alice) != 0 {
		t.Fatalf("expected targeted send to skip alice")
	}
}

func TestHubUnregisterClosesQueueAndLeavesRooms(t *testing.T) {
	hub := NewHub(1)
	ch := hub.Register("h1")
	hub.Join("QZ1", "h1")
	if hub.Members("QZ1") != 1 {
		t.Fatalf("expected 1 member")
	}

	hub.Unregister("h1")
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if hub.Members("QZ1") != 0 {
		t.Fatalf("expected empty room after unregister")
	}
	// sending to a gone handle is a no-op
	hub.SendTo("h1", domain.NewEvent(domain.SessionStarted{Code: "QZ1"}))
}

func TestHubDropsWhenQueueFull(t *testing.T) {
	hub := NewHub(1)
	hub.Register("h1")
	hub.Join("QZ1", "h1")

	hub.Send("QZ1", domain.NewEvent(domain.SessionStarted{Code: "QZ1"}))
	hub.Send("QZ1", domain.NewEvent(domain.SessionStarted{Code: "QZ1"}))
	if hub.Dropped() != 1 {
		t.Fatalf("expected 1 dropped message, got %d", hub.Dropped())
	}
}

func eventType(t *testing.T, data []byte) domain.EventType {
	t.Helper()
	var msg struct {
		Type domain.EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return msg.Type
}

func TestHubKeepsCallOrderAcrossRoomAndTargetedSends(t *testing.T) {
	hub := NewHub(8)
	bob := hub.Register("h-bob")
	hub.Join("QZ1", "h-bob")

	hub.Send("QZ1", domain.NewEvent(domain.ParticipantsChanged{Name: "Bob", Action: domain.ActionJoined}))
	hub.SendTo("h-bob", domain.NewEvent(domain.SessionStarted{Code: "QZ1"}))
	hub.Send("QZ1", domain.NewEvent(domain.SessionEnded{Code: "QZ1"}))

	want := []domain.EventType{domain.EventParticipantsChanged, domain.EventSessionStarted, domain.EventSessionEnded}
	for i, typ := range want {
		if got := eventType(t, <-bob); got != typ {
			t.Fatalf("event %d: expected %s, got %s", i, typ, got)
		}
	}
}
