package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	jobmetrics "github.com/hirepurchase/hpadmin/internal/jobs"
	"github.com/hirepurchase/hpadmin/internal/sheets"
)

// Creator submits one entity to the backend.
type Creator interface {
	Create(ctx context.Context, endpoint string, payload any) error
}

// ProgressFunc receives a short status line before each entity phase.
type ProgressFunc func(message string)

// EntitySummary counts the outcome of one sheet.
type EntitySummary struct {
	Success int      `json:"success"`
	Errors  []string `json:"errors"`
}

// Result aggregates a batch run. Success is true once every sheet was
// processed, regardless of row failures.
type Result struct {
	Success    bool                      `json:"success"`
	Entities   map[string]*EntitySummary `json:"entities"`
	Errors     []string                  `json:"errors"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
}

// Created returns the number of rows accepted across all sheets.
func (r Result) Created() int {
	total := 0
	for _, s := range r.Entities {
		total += s.Success
	}
	return total
}

// Failed returns the number of rejected rows across all sheets.
func (r Result) Failed() int {
	total := 0
	for _, s := range r.Entities {
		total += len(s.Errors)
	}
	return total
}

// Executor submits a validated batch row by row in dependency order.
type Executor struct {
	creator Creator
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	now     func() time.Time
}

// NewExecutor constructs an executor. metrics may be nil.
func NewExecutor(creator Creator, logger *slog.Logger, metrics *jobmetrics.Metrics) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{creator: creator, logger: logger, metrics: metrics, now: time.Now}
}

// Execute runs the batch. Row failures are collected in the result; a non-nil
// error is a *BatchError and means the remaining rows were not submitted.
func (e *Executor) Execute(ctx context.Context, batch Batch, progress ProgressFunc) (Result, error) {
	tracker := e.metrics.Track("import_batch")
	res := Result{
		Entities:  make(map[string]*EntitySummary),
		StartedAt: e.now(),
	}

	for _, def := range sheets.All() {
		records := batch.Records(def.Name)
		if len(records) == 0 {
			continue
		}
		summary := &EntitySummary{}
		res.Entities[def.Name] = summary
		if progress != nil {
			progress(fmt.Sprintf("Importing %s...", strings.ToLower(def.Name)))
		}
		for _, rec := range records {
			if err := ctx.Err(); err != nil {
				berr := &BatchError{Sheet: def.Name, Row: rec.Row, Err: err}
				res.Errors = append(res.Errors, berr.Error())
				res.FinishedAt = e.now()
				e.logger.Warn("import aborted", slog.String("sheet", def.Name), slog.Int("row", rec.Row), slog.Any("error", err))
				return res, tracker.End(berr)
			}
			if err := e.submit(ctx, def, rec); err != nil {
				summary.Errors = append(summary.Errors, err.Error())
				e.metrics.ObserveRow(def.Entity, "failed")
				e.logger.Warn("import row rejected", slog.String("sheet", def.Name), slog.Int("row", rec.Row), slog.Any("error", err))
				continue
			}
			summary.Success++
			e.metrics.ObserveRow(def.Entity, "created")
		}
		e.logger.Info("import sheet done", slog.String("sheet", def.Name), slog.Int("success", summary.Success), slog.Int("failed", len(summary.Errors)))
	}

	res.Success = true
	res.FinishedAt = e.now()
	return res, tracker.End(nil)
}

func (e *Executor) submit(ctx context.Context, def sheets.Sheet, rec Record) error {
	rowErr := func(err error) error {
		return &RowSubmissionError{Entity: def.Entity, Key: recordKey(def, rec), Row: rec.Row, Err: err}
	}
	payload, err := buildPayload(def, rec)
	if err != nil {
		return rowErr(err)
	}
	if err := e.creator.Create(ctx, def.Endpoint, payload); err != nil {
		return rowErr(err)
	}
	return nil
}
