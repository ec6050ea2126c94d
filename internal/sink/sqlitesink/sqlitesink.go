// Package sqlitesink provides a sample oracle.Subscriber that appends each
// schedule fire to a local SQLite table, illustrating the persistence
// collaborator spec §1 excludes from the core itself (the core only
// decides what fires and when; recording history is a host concern).
package sqlitesink

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Sink records each schedule fire as a row in a "fires" table.
type Sink struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (creating if necessary) a SQLite database at dbPath and
// prepares its schema. Use ":memory:" for an ephemeral, test-only store.
func New(dbPath string) (*Sink, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlitesink: open database: %w", err)
	}

	s := &Sink{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitesink: initialize schema: %w", err)
	}
	return s, nil
}

func (s *Sink) initialize() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS fires (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		schedule_id TEXT NOT NULL,
		fired_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_fires_schedule_id ON fires(schedule_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Subscriber adapts Record to the oracle.Subscriber signature. A recording
// failure is swallowed (the fire already happened; history is best-effort)
// rather than surfaced to the dispatcher, which has no error channel for
// subscriber failures.
func (s *Sink) Subscriber(scheduleID string) {
	_ = s.Record(context.Background(), scheduleID)
}

// Record appends a fire event for scheduleID.
func (s *Sink) Record(ctx context.Context, scheduleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO fires (schedule_id, fired_at) VALUES (?, ?)",
		scheduleID, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlitesink: insert fire: %w", err)
	}
	return nil
}

// History returns every recorded fire for scheduleID, oldest first.
func (s *Sink) History(ctx context.Context, scheduleID string) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT fired_at FROM fires WHERE schedule_id = ? ORDER BY id", scheduleID)
	if err != nil {
		return nil, fmt.Errorf("sqlitesink: query fires: %w", err)
	}
	defer rows.Close()

	var history []time.Time
	for rows.Next() {
		var firedAtUnix int64
		if err := rows.Scan(&firedAtUnix); err != nil {
			return nil, fmt.Errorf("sqlitesink: scan fire: %w", err)
		}
		history = append(history, time.Unix(firedAtUnix, 0))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitesink: iterate fires: %w", err)
	}
	return history, nil
}

// Close closes the underlying database connection.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
