package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hirepurchase/hpadmin/internal/platform/db"
)

// Run is a persisted summary of an executed import.
type Run struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Filename   string    `json:"filename"`
	Status     Status    `json:"status"`
	Created    int       `json:"created"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// History records executed imports in PostgreSQL. A nil pool disables it.
type History struct {
	pool *pgxpool.Pool
}

// NewHistory constructs the history recorder.
func NewHistory(pool *pgxpool.Pool) *History {
	return &History{pool: pool}
}

// Enabled reports whether runs are persisted.
func (h *History) Enabled() bool {
	return h != nil && h.pool != nil
}

// Record stores the run and its per-sheet outcome in one transaction.
func (h *History) Record(ctx context.Context, sess *Session) error {
	if !h.Enabled() || sess.Result == nil {
		return nil
	}
	res := sess.Result
	return db.WithTx(ctx, h.pool, func(tx pgx.Tx) error {
		var runID int64
		err := tx.QueryRow(ctx, `INSERT INTO import_runs (session_id, filename, status, created, failed, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`,
			sess.ID, sess.Filename, string(sess.Status), res.Created(), res.Failed(), res.StartedAt, res.FinishedAt,
		).Scan(&runID)
		if err != nil {
			return fmt.Errorf("importer: insert run: %w", err)
		}
		batch := &pgx.Batch{}
		for sheet, summary := range res.Entities {
			batch.Queue(`INSERT INTO import_run_entities (run_id, sheet, success, errors) VALUES ($1, $2, $3, $4)`,
				runID, sheet, summary.Success, summary.Errors)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("importer: insert run entities: %w", err)
		}
		return nil
	})
}

// Recent lists the latest runs, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]Run, error) {
	if !h.Enabled() {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := h.pool.Query(ctx, `SELECT id, session_id, filename, status, created, failed, started_at, finished_at
FROM import_runs
ORDER BY finished_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("importer: list runs: %w", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var run Run
		var status string
		if err := rows.Scan(&run.ID, &run.SessionID, &run.Filename, &status, &run.Created, &run.Failed, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, err
		}
		run.Status = Status(status)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
