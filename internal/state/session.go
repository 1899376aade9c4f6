package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/concierge-labs/concierge/pkg/models"
)

// Session is the cross-turn record for one conversation.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	// FailureStreak counts consecutive turns that contained at least one
	// failed handler. It backs the repeated-failure escalation trigger and
	// resets on the first clean turn.
	FailureStreak int `json:"failure_streak"`
}

// TurnRecord is one persisted request/response cycle.
type TurnRecord struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Utterance string          `json:"utterance"`
	Response  string          `json:"response"`
	Intents   []models.Intent `json:"intents"`
	Handlers  []string        `json:"handlers"`
	Escalated bool            `json:"escalated"`
	Success   bool            `json:"success"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateSession creates a new session record.
func (db *DB) CreateSession(s *Session) error {
	_, err := db.Exec(`
		INSERT INTO sessions (id, user_id, created_at, last_active_at, failure_streak)
		VALUES (?, ?, ?, ?, ?)
	`, s.ID, s.UserID, formatTime(s.CreatedAt), formatTime(s.LastActiveAt), s.FailureStreak)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID. Returns nil when not found.
func (db *DB) GetSession(id string) (*Session, error) {
	row := db.QueryRow(`
		SELECT id, user_id, created_at, last_active_at, failure_streak
		FROM sessions WHERE id = ?
	`, id)

	var s Session
	var userID sql.NullString
	var createdAt, lastActiveAt string
	err := row.Scan(&s.ID, &userID, &createdAt, &lastActiveAt, &s.FailureStreak)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if userID.Valid {
		s.UserID = userID.String
	}
	s.CreatedAt, _ = parseTime(createdAt)
	s.LastActiveAt, _ = parseTime(lastActiveAt)
	return &s, nil
}

// UpdateSession writes the session's mutable fields. Last write wins; a
// session is expected to have at most one in-flight turn.
func (db *DB) UpdateSession(s *Session) error {
	_, err := db.Exec(`
		UPDATE sessions SET user_id = ?, last_active_at = ?, failure_streak = ?
		WHERE id = ?
	`, s.UserID, formatTime(s.LastActiveAt), s.FailureStreak, s.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// DeleteSession deletes a session and its turn history.
func (db *DB) DeleteSession(id string) error {
	_, err := db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ListSessions lists all sessions, most recently active first.
func (db *DB) ListSessions() ([]Session, error) {
	rows, err := db.Query(`
		SELECT id, user_id, created_at, last_active_at, failure_streak
		FROM sessions ORDER BY last_active_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var userID sql.NullString
		var createdAt, lastActiveAt string
		if err := rows.Scan(&s.ID, &userID, &createdAt, &lastActiveAt, &s.FailureStreak); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if userID.Valid {
			s.UserID = userID.String
		}
		s.CreatedAt, _ = parseTime(createdAt)
		s.LastActiveAt, _ = parseTime(lastActiveAt)
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// AppendTurn records a completed turn for a session.
func (db *DB) AppendTurn(t *TurnRecord) error {
	intents, _ := json.Marshal(t.Intents)
	handlers, _ := json.Marshal(t.Handlers)

	_, err := db.Exec(`
		INSERT INTO turns (id, session_id, utterance, response, intents, handlers, escalated, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.SessionID, t.Utterance, t.Response, string(intents), string(handlers),
		boolToInt(t.Escalated), boolToInt(t.Success), formatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// RecentTurns returns the last n turns of a session, oldest first, so an
// escalation snapshot reads as a transcript.
func (db *DB) RecentTurns(sessionID string, n int) ([]TurnRecord, error) {
	rows, err := db.Query(`
		SELECT id, session_id, utterance, response, intents, handlers, escalated, success, created_at
		FROM turns WHERE session_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}
	defer rows.Close()

	var turns []TurnRecord
	for rows.Next() {
		var t TurnRecord
		var response, intents, handlers sql.NullString
		var escalated, success int
		var createdAt string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Utterance, &response, &intents, &handlers, &escalated, &success, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if response.Valid {
			t.Response = response.String
		}
		if intents.Valid {
			json.Unmarshal([]byte(intents.String), &t.Intents)
		}
		if handlers.Valid {
			json.Unmarshal([]byte(handlers.String), &t.Handlers)
		}
		t.Escalated = escalated != 0
		t.Success = success != 0
		t.CreatedAt, _ = parseTime(createdAt)
		turns = append(turns, t)
	}

	// Reverse into chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// boolToInt converts a bool for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
