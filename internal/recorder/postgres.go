package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"ProtectiveAllocator/internal/model"
)

// PostgresRecorder persists the allocation ledger to PostgreSQL.
type PostgresRecorder struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPostgresRecorder connects, pings and migrates.
func NewPostgresRecorder(ctx context.Context, dsn string, log zerolog.Logger) (*PostgresRecorder, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolCfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRecorder{pool: pool, log: log.With().Str("component", "recorder").Str("driver", "postgres").Logger()}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	r.log.Info().Msg("postgres ledger opened")
	return r, nil
}

func (r *PostgresRecorder) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS allocation_runs (
			id               BIGSERIAL PRIMARY KEY,
			run_id           TEXT NOT NULL UNIQUE,
			date             TEXT NOT NULL,
			total_capital    DOUBLE PRECISION,
			negative_count   INTEGER,
			defensive_ratio  DOUBLE PRECISION,
			defensive_amount DOUBLE PRECISION,
			offensive_share  DOUBLE PRECISION,
			unallocated      DOUBLE PRECISION,
			created_at       BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS allocations (
			id         BIGSERIAL PRIMARY KEY,
			run_id     TEXT NOT NULL,
			date       TEXT NOT NULL,
			etf        TEXT NOT NULL,
			amount     DOUBLE PRECISION NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_allocations_date ON allocations(date)`,
		`CREATE INDEX IF NOT EXISTS idx_allocations_run ON allocations(run_id)`,
	}
	for _, s := range stmts {
		if _, err := r.pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordAllocation appends the run and its rows in a single transaction.
func (r *PostgresRecorder) RecordAllocation(ctx context.Context, alloc *model.Allocation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UnixNano()
	if _, err := tx.Exec(ctx, `INSERT INTO allocation_runs
		(run_id, date, total_capital, negative_count, defensive_ratio, defensive_amount, offensive_share, unallocated, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		alloc.RunID.String(), alloc.RunDate(), alloc.TotalCapital, alloc.NegativeCount,
		alloc.DefensiveRatio, alloc.DefensiveAmount, alloc.OffensiveShare, alloc.Unallocated, now,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, rec := range alloc.Records() {
		batch.Queue(`INSERT INTO allocations (run_id, date, etf, amount, created_at) VALUES ($1,$2,$3,$4,$5)`,
			rec.RunID.String(), rec.Date, rec.Symbol, rec.Amount, now)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert allocations: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.log.Info().Str("run_id", alloc.RunID.String()).Int("rows", len(alloc.Entries)).Msg("allocation recorded")
	return nil
}

// History returns every ledger row ordered by date then insertion.
func (r *PostgresRecorder) History(ctx context.Context) ([]model.AllocationRecord, error) {
	return r.query(ctx, `SELECT id, run_id, date, etf, amount FROM allocations ORDER BY date, id`)
}

// Latest returns the rows of the most recently recorded run.
func (r *PostgresRecorder) Latest(ctx context.Context) ([]model.AllocationRecord, error) {
	return r.query(ctx, `SELECT id, run_id, date, etf, amount FROM allocations
		WHERE run_id = (SELECT run_id FROM allocation_runs ORDER BY id DESC LIMIT 1)
		ORDER BY id`)
}

func (r *PostgresRecorder) query(ctx context.Context, q string) ([]model.AllocationRecord, error) {
	rows, err := r.pool.Query(ctx, q)
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

func (r *PostgresRecorder) Close() error {
	r.log.Info().Msg("closing postgres ledger")
	r.pool.Close()
	return nil
}
