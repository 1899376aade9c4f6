package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/concierge-labs/concierge/pkg/models"
)

func TestSessionCRUD(t *testing.T) {
	db := setupTestDB(t)

	now := time.Now()
	s := &Session{
		ID:           "sess-1",
		UserID:       "user-9",
		CreatedAt:    now,
		LastActiveAt: now,
	}

	if err := db.CreateSession(s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := db.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.UserID != "user-9" {
		t.Errorf("expected user-9, got %s", got.UserID)
	}
	if got.FailureStreak != 0 {
		t.Errorf("expected zero failure streak, got %d", got.FailureStreak)
	}

	got.FailureStreak = 2
	got.LastActiveAt = now.Add(time.Minute)
	if err := db.UpdateSession(got); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}

	got, err = db.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.FailureStreak != 2 {
		t.Errorf("expected failure streak 2, got %d", got.FailureStreak)
	}

	if err := db.DeleteSession("sess-1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	got, err = db.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestGetSessionNotFound(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.GetSession("missing")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown session")
	}
}

func TestListSessionsOrder(t *testing.T) {
	db := setupTestDB(t)

	now := time.Now()
	for i := 0; i < 3; i++ {
		s := &Session{
			ID:           fmt.Sprintf("sess-%d", i),
			CreatedAt:    now,
			LastActiveAt: now.Add(time.Duration(i) * time.Minute),
		}
		if err := db.CreateSession(s); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
	}

	sessions, err := db.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "sess-2" {
		t.Errorf("expected most recently active first, got %s", sessions[0].ID)
	}
}

func TestAppendAndRecentTurns(t *testing.T) {
	db := setupTestDB(t)

	now := time.Now()
	s := &Session{ID: "sess-1", CreatedAt: now, LastActiveAt: now}
	if err := db.CreateSession(s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	for i := 0; i < 15; i++ {
		turn := &TurnRecord{
			ID:        fmt.Sprintf("turn-%02d", i),
			SessionID: "sess-1",
			Utterance: fmt.Sprintf("utterance %d", i),
			Response:  fmt.Sprintf("response %d", i),
			Intents:   []models.Intent{models.IntentSearch},
			Handlers:  []string{"product-search"},
			Success:   true,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := db.AppendTurn(turn); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}

	turns, err := db.RecentTurns("sess-1", 10)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 10 {
		t.Fatalf("expected 10 turns, got %d", len(turns))
	}

	// Chronological order, ending with the newest.
	if turns[0].Utterance != "utterance 5" {
		t.Errorf("expected oldest retained turn first, got %q", turns[0].Utterance)
	}
	if turns[9].Utterance != "utterance 14" {
		t.Errorf("expected newest turn last, got %q", turns[9].Utterance)
	}

	if len(turns[0].Intents) != 1 || turns[0].Intents[0] != models.IntentSearch {
		t.Errorf("intents not round-tripped: %v", turns[0].Intents)
	}
	if len(turns[0].Handlers) != 1 || turns[0].Handlers[0] != "product-search" {
		t.Errorf("handlers not round-tripped: %v", turns[0].Handlers)
	}
}

func TestRecentTurnsEmptySession(t *testing.T) {
	db := setupTestDB(t)

	turns, err := db.RecentTurns("missing", 10)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected no turns, got %d", len(turns))
	}
}
