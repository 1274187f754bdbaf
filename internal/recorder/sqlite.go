package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"ProtectiveAllocator/internal/model"
)

// SQLiteRecorder persists the allocation ledger to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Str("driver", "sqlite").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite ledger opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		createRunsSQLite,
		createAllocationsSQLite,
		`CREATE INDEX IF NOT EXISTS idx_allocations_date ON allocations(date)`,
		`CREATE INDEX IF NOT EXISTS idx_allocations_run ON allocations(run_id)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordAllocation appends the run and its rows in a single transaction.
func (r *SQLiteRecorder) RecordAllocation(ctx context.Context, alloc *model.Allocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixNano()
	if _, err := tx.ExecContext(ctx, `INSERT INTO allocation_runs
		(run_id, date, total_capital, negative_count, defensive_ratio, defensive_amount, offensive_share, unallocated, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		alloc.RunID.String(), alloc.RunDate(), alloc.TotalCapital, alloc.NegativeCount,
		alloc.DefensiveRatio, alloc.DefensiveAmount, alloc.OffensiveShare, alloc.Unallocated, now,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, rec := range alloc.Records() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO allocations (run_id, date, etf, amount, created_at) VALUES (?,?,?,?,?)`,
			rec.RunID.String(), rec.Date, rec.Symbol, rec.Amount, now,
		); err != nil {
			return fmt.Errorf("insert allocation %s: %w", rec.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.log.Info().Str("run_id", alloc.RunID.String()).Int("rows", len(alloc.Entries)).Msg("allocation recorded")
	return nil
}

// History returns every ledger row ordered by date then insertion.
func (r *SQLiteRecorder) History(ctx context.Context) ([]model.AllocationRecord, error) {
	return r.query(ctx, `SELECT id, run_id, date, etf, amount FROM allocations ORDER BY date, id`)
}

// Latest returns the rows of the most recently recorded run.
func (r *SQLiteRecorder) Latest(ctx context.Context) ([]model.AllocationRecord, error) {
	return r.query(ctx, `SELECT id, run_id, date, etf, amount FROM allocations
		WHERE run_id = (SELECT run_id FROM allocation_runs ORDER BY id DESC LIMIT 1)
		ORDER BY id`)
}

func (r *SQLiteRecorder) query(ctx context.Context, q string) ([]model.AllocationRecord, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query allocations: %w", err)
	}
	defer rows.Close()

	var out []model.AllocationRecord
	for rows.Next() {
		var rec model.AllocationRecord
		var runID string
		if err := rows.Scan(&rec.ID, &runID, &rec.Date, &rec.Symbol, &rec.Amount); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		if rec.RunID, err = uuid.Parse(runID); err != nil {
			return nil, fmt.Errorf("parse run id %q: %w", runID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite ledger")
	return r.db.Close()
}
