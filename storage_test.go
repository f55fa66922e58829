package ai

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	if _, err := s.GetSession(ctx, "missing"); !IsStorageNotFound(err) {
		t.Fatalf("err=%v", err)
	}
	if err := s.StoreMessages(ctx, "missing", nil); !IsStorageNotFound(err) {
		t.Fatalf("err=%v", err)
	}
	if err := s.StoreSession(ctx, Session{}); !IsStorage(err) {
		t.Fatalf("err=%v", err)
	}

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"a", "b"} {
		if err := s.StoreSession(ctx, Session{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("err=%v", err)
		}
	}
	msgs := []StoredMessage{
		{ID: s.GenerateMessageID(), Message: UserText("one")},
		{ID: s.GenerateMessageID(), Message: AssistantText("two"), ModelID: "m", FinishReason: FinishStop},
		{ID: s.GenerateMessageID(), Message: UserText("three")},
	}
	if err := s.StoreMessages(ctx, "a", msgs); err != nil {
		t.Fatalf("err=%v", err)
	}

	all, err := s.GetMessages(ctx, "a", 0)
	if err != nil || len(all) != 3 || all[1].ModelID != "m" || all[0].SessionID != "a" {
		t.Fatalf("all=%#v err=%v", all, err)
	}
	last, _ := s.GetMessages(ctx, "a", 2)
	if len(last) != 2 || last[0].ID != msgs[1].ID {
		t.Fatalf("last=%#v", last)
	}

	// Storing messages bumps "a" ahead of "b".
	sessions, _ := s.ListSessions(ctx, 0)
	if len(sessions) != 2 || sessions[0].ID != "a" {
		t.Fatalf("sessions=%#v", sessions)
	}
	if one, _ := s.ListSessions(ctx, 1); len(one) != 1 {
		t.Fatalf("limit ignored: %d", len(one))
	}

	if err := s.DeleteSession(ctx, "a"); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := s.GetMessages(ctx, "a", 0); !IsStorageNotFound(err) {
		t.Fatalf("err=%v", err)
	}
	if err := s.DeleteSession(ctx, "a"); !IsStorageNotFound(err) {
		t.Fatalf("err=%v", err)
	}
}
