// Package state provides SQLite-based session persistence for Concierge.
package state

import (
	"io"
	"time"
)

// SessionStore handles session-related persistence operations.
type SessionStore interface {
	CreateSession(s *Session) error
	GetSession(id string) (*Session, error)
	UpdateSession(s *Session) error
	PurgeExpiredSessions(ttl time.Duration) (int64, error)
}

// TurnStore handles turn-history persistence operations.
type TurnStore interface {
	AppendTurn(t *TurnRecord) error
	RecentTurns(sessionID string, n int) ([]TurnRecord, error)
}

// Migrator handles database schema migrations.
// Separating this allows clients to depend only on migration functionality.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store defines the interface for session persistence.
// This interface allows the orchestrator to work with any state backend
// without depending on the concrete SQLite implementation.
// It composes focused sub-interfaces for better modularity.
type Store interface {
	io.Closer
	Migrator
	SessionStore
	TurnStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store        = (*DB)(nil)
	_ Migrator     = (*DB)(nil)
	_ SessionStore = (*DB)(nil)
	_ TurnStore    = (*DB)(nil)
)
