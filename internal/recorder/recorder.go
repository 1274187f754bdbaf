package recorder

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"ProtectiveAllocator/internal/model"
)

// Recorder is the append-only allocation ledger. Every run is written as a
// whole or not at all; rows are never updated or deleted.
type Recorder interface {
	RecordAllocation(ctx context.Context, alloc *model.Allocation) error
	History(ctx context.Context) ([]model.AllocationRecord, error)
	Latest(ctx context.Context) ([]model.AllocationRecord, error)
	Close() error
}

// Open returns the configured ledger. A PostgreSQL DSN takes precedence
// over a SQLite path. A configured backend that cannot be opened is an
// error; the no-op recorder is used only when neither is configured.
func Open(ctx context.Context, postgresDSN, sqlitePath string, log zerolog.Logger) (Recorder, error) {
	switch {
	case postgresDSN != "":
		r, err := NewPostgresRecorder(ctx, postgresDSN, log)
		if err != nil {
			return nil, fmt.Errorf("open postgres ledger: %w", err)
		}
		return r, nil
	case sqlitePath != "":
		r, err := NewSQLiteRecorder(sqlitePath, log)
		if err != nil {
			return nil, fmt.Errorf("open sqlite ledger %s: %w", sqlitePath, err)
		}
		return r, nil
	default:
		log.Warn().Msg("no ledger configured, allocations will not be kept")
		return NewNoopRecorder(), nil
	}
}

const createRunsSQLite = `CREATE TABLE IF NOT EXISTS allocation_runs (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id           TEXT NOT NULL UNIQUE,
	date             TEXT NOT NULL,
	total_capital    REAL,
	negative_count   INTEGER,
	defensive_ratio  REAL,
	defensive_amount REAL,
	offensive_share  REAL,
	unallocated      REAL,
	created_at       INTEGER NOT NULL
)`

const createAllocationsSQLite = `CREATE TABLE IF NOT EXISTS allocations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL,
	date       TEXT NOT NULL,
	etf        TEXT NOT NULL,
	amount     REAL NOT NULL,
	created_at INTEGER NOT NULL
)`
