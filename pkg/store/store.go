package store

import (
	"time"

	"github.com/heraldbot/herald/pkg/types"
)

// Store is the engine's durable view of tracked events: the latest
// known record per id, the last observed upstream modification
// timestamp per id, and a table that survives restarts.
type Store interface {
	// Recall loads the durable table into memory. Called once at
	// startup, before the first tick.
	Recall() error

	// Known returns the latest record for an id.
	Known(id string) (types.EventRecord, bool)

	// LastUpdated returns the last observed upstream modification
	// timestamp for an id.
	LastUpdated(id string) (time.Time, bool)

	// All returns every tracked record, ordered by id.
	All() []types.EventRecord

	// Upsert writes the record durably and updates both in-memory
	// mappings.
	Upsert(rec types.EventRecord) error

	// Remove deletes the row and both in-memory entries.
	Remove(id string) error

	// Len reports the number of tracked events.
	Len() int

	Close() error
}
