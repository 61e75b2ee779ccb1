package store

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/heraldbot/herald/pkg/clock"
	"github.com/heraldbot/herald/pkg/log"
	"github.com/heraldbot/herald/pkg/types"
)

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
	title       TEXT,
	description TEXT,
	startAt     TEXT,
	updatedAt   TEXT,
	place       TEXT,
	id          TEXT PRIMARY KEY,
	link        TEXT
)`

// SQLiteStore implements Store on a single-file SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger

	mu          sync.RWMutex
	known       map[string]types.EventRecord
	lastUpdated map[string]time.Time
}

// Open opens (creating if necessary) the database at path and ensures
// the events table exists. Recall must be called before first use.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	if _, err := db.Exec(createEventsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create events table: %w", err)
	}

	return &SQLiteStore{
		db:          db,
		logger:      log.WithComponent("store"),
		known:       make(map[string]types.EventRecord),
		lastUpdated: make(map[string]time.Time),
	}, nil
}

// Recall loads every persisted row into the in-memory mappings. Rows
// with unreadable timestamps are dropped from the table rather than
// carried as corrupt state.
func (s *SQLiteStore) Recall() error {
	rows, err := s.db.Query(`SELECT title, description, startAt, updatedAt, place, id, link FROM events`)
	if err != nil {
		return fmt.Errorf("recall events: %w", err)
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	var corrupt []string
	for rows.Next() {
		var rec types.EventRecord
		var startAt, updatedAt string
		if err := rows.Scan(&rec.Title, &rec.Description, &startAt, &updatedAt, &rec.Place, &rec.ID, &rec.Link); err != nil {
			return fmt.Errorf("scan event row: %w", err)
		}

		if rec.StartAt, err = clock.Parse(startAt); err != nil {
			s.logger.Warn().Str("event_id", rec.ID).Str("startAt", startAt).Msg("Dropping row with unreadable start timestamp")
			corrupt = append(corrupt, rec.ID)
			continue
		}
		if rec.UpdatedAt, err = clock.Parse(updatedAt); err != nil {
			s.logger.Warn().Str("event_id", rec.ID).Str("updatedAt", updatedAt).Msg("Dropping row with unreadable update timestamp")
			corrupt = append(corrupt, rec.ID)
			continue
		}

		s.known[rec.ID] = rec
		s.lastUpdated[rec.ID] = rec.UpdatedAt
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("recall events: %w", err)
	}

	for _, id := range corrupt {
		if _, err := s.db.Exec(`DELETE FROM events WHERE id = ?`, id); err != nil {
			s.logger.Error().Err(err).Str("event_id", id).Msg("Failed to delete corrupt row")
		}
	}

	s.logger.Info().Int("events", len(s.known)).Msg("Recalled persisted events")
	return nil
}

func (s *SQLiteStore) Known(id string) (types.EventRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.known[id]
	return rec, ok
}

func (s *SQLiteStore) LastUpdated(id string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.lastUpdated[id]
	return t, ok
}

func (s *SQLiteStore) All() []types.EventRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]types.EventRecord, 0, len(s.known))
	for _, rec := range s.known {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// Upsert writes the row and updates both mappings. The row write and
// the map updates happen under the store lock so a concurrent drain
// never observes a half-applied event.
func (s *SQLiteStore) Upsert(rec types.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO events (title, description, startAt, updatedAt, place, id, link) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Title, rec.Description, clock.Format(rec.StartAt), clock.Format(rec.UpdatedAt), rec.Place, rec.ID, rec.Link,
	)
	if err != nil {
		return fmt.Errorf("upsert event %s: %w", rec.ID, err)
	}

	s.known[rec.ID] = rec
	s.lastUpdated[rec.ID] = rec.UpdatedAt
	return nil
}

func (s *SQLiteStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM events WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove event %s: %w", id, err)
	}

	delete(s.known, id)
	delete(s.lastUpdated, id)
	return nil
}

func (s *SQLiteStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.known)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
