package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "test.db")
}

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestOpen(t *testing.T) {
	path := tempDBPath(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("expected path %s, got %s", path, db.Path())
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestOpenCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "test.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
}

func TestMigrateIdempotent(t *testing.T) {
	db := setupTestDB(t)

	// Running migrations again must be a no-op.
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestPurgeExpiredSessions(t *testing.T) {
	db := setupTestDB(t)

	now := time.Now()
	old := &Session{
		ID:           "sess-old",
		CreatedAt:    now.Add(-48 * time.Hour),
		LastActiveAt: now.Add(-48 * time.Hour),
	}
	fresh := &Session{
		ID:           "sess-fresh",
		CreatedAt:    now,
		LastActiveAt: now,
	}
	for _, s := range []*Session{old, fresh} {
		if err := db.CreateSession(s); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
	}

	count, err := db.PurgeExpiredSessions(24 * time.Hour)
	if err != nil {
		t.Fatalf("PurgeExpiredSessions: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 purged session, got %d", count)
	}

	got, err := db.GetSession("sess-old")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got != nil {
		t.Error("expected expired session to be deleted")
	}

	got, err = db.GetSession("sess-fresh")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got == nil {
		t.Error("fresh session must survive the purge")
	}
}

func TestPurgeCascadesTurns(t *testing.T) {
	db := setupTestDB(t)

	now := time.Now()
	s := &Session{ID: "sess-1", CreatedAt: now.Add(-48 * time.Hour), LastActiveAt: now.Add(-48 * time.Hour)}
	if err := db.CreateSession(s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	turn := &TurnRecord{
		ID:        "turn-1",
		SessionID: "sess-1",
		Utterance: "hello",
		Success:   true,
		CreatedAt: now.Add(-48 * time.Hour),
	}
	if err := db.AppendTurn(turn); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	if _, err := db.PurgeExpiredSessions(24 * time.Hour); err != nil {
		t.Fatalf("PurgeExpiredSessions: %v", err)
	}

	turns, err := db.RecentTurns("sess-1", 10)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected cascade delete of turns, got %d", len(turns))
	}
}
