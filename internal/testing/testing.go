// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/calebmds/taskchain/internal/realtime"
	"github.com/calebmds/taskchain/internal/shared"
)

// SetupTestDB opens an in-memory SQLite database with migrations applied.
// The database is closed when the test finishes.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Each pooled connection would otherwise get its own private :memory: db.
	db.SetMaxOpenConns(1)

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// RecordingConn is a test double for [realtime.Conn] that captures every
// delivered event.
type RecordingConn struct {
	mu     sync.Mutex
	id     string
	userID string
	events []realtime.Event
}

func NewRecordingConn(id, userID string) *RecordingConn {
	return &RecordingConn{id: id, userID: userID}
}

func (c *RecordingConn) ID() string     { return c.id }
func (c *RecordingConn) UserID() string { return c.userID }

func (c *RecordingConn) Send(event realtime.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

// Events returns a copy of everything delivered so far.
func (c *RecordingConn) Events() []realtime.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]realtime.Event(nil), c.events...)
}

// FailingConn is a test double for [realtime.Conn] whose Send always fails.
type FailingConn struct {
	id     string
	userID string
}

func NewFailingConn(id, userID string) *FailingConn {
	return &FailingConn{id: id, userID: userID}
}

func (c *FailingConn) ID() string     { return c.id }
func (c *FailingConn) UserID() string { return c.userID }

func (c *FailingConn) Send(realtime.Event) error {
	return errors.New("send failed")
}

// StaticAccessChecker is a test double for [models.AccessChecker] backed by
// a fixed allow list of user ids.
type StaticAccessChecker struct {
	Allowed map[string]bool
	Owner   string
	Err     error
}

func (s *StaticAccessChecker) HasAccess(ctx context.Context, projectID int64, userID string) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	return s.Allowed[userID], nil
}

func (s *StaticAccessChecker) IsOwner(ctx context.Context, projectID int64, userID string) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	return userID == s.Owner, nil
}
