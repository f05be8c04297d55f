package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ReferenceInvalidator drops cached reference data once new rows exist.
type ReferenceInvalidator interface {
	Invalidate(ctx context.Context)
}

// Service coordinates uploads and executions of import sessions.
type Service struct {
	store     *SessionStore
	executor  *Executor
	history   *History
	reference ReferenceInvalidator
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the import orchestration. history and reference may be nil.
func NewService(store *SessionStore, executor *Executor, history *History, reference ReferenceInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		executor:  executor,
		history:   history,
		reference: reference,
		logger:    logger,
		now:       time.Now,
	}
}

// Upload reads and validates a workbook and stores it as a new session. A
// *FileReadError is returned when the file is not a readable workbook;
// validation problems are recorded on the session instead.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (*Session, error) {
	batch, err := Read(r)
	if err != nil {
		var fre *FileReadError
		if errors.As(err, &fre) {
			fre.Name = filename
		}
		return nil, err
	}
	sess := &Session{
		ID:         uuid.NewString(),
		Filename:   filename,
		UploadedAt: s.now().UTC(),
		Counts:     batch.Counts(),
		Errors:     Validate(batch),
		Batch:      batch,
		Status:     StatusValidated,
	}
	if !sess.Importable() {
		sess.Status = StatusInvalid
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Info("import uploaded",
		slog.String("session", sess.ID),
		slog.String("file", filename),
		slog.Int("rows", batch.Total()),
		slog.Int("errors", len(sess.Errors)),
	)
	return sess, nil
}

// Get returns a stored session.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.store.Load(ctx, id)
}

// Execute submits a validated session to the backend at most once.
func (s *Service) Execute(ctx context.Context, id string, progress ProgressFunc) (*Session, error) {
	sess, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.Importable() {
		return sess, ErrNotImportable
	}
	claimed, err := s.store.Claim(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return sess, ErrAlreadyExecuted
	}

	sess.Status = StatusRunning
	if err := s.store.Save(ctx, sess); err != nil {
		s.release(ctx, id)
		return nil, err
	}

	res, runErr := s.executor.Execute(ctx, sess.Batch, progress)

	// The run has happened; persist its outcome even if the caller went away.
	persistCtx := context.WithoutCancel(ctx)
	if runErr != nil && res.Created() == 0 {
		// Nothing reached the backend, so the session may run again.
		sess.Status = StatusValidated
		sess.Result = nil
		sess.Failure = runErr.Error()
		if err := s.store.Save(persistCtx, sess); err != nil {
			s.logger.Error("import session save", slog.String("session", id), slog.Any("error", err))
		}
		s.release(persistCtx, id)
		s.logger.Warn("import aborted before any row was created", slog.String("session", id), slog.Any("error", runErr))
		return sess, runErr
	}

	sess.Result = &res
	sess.Status = StatusCompleted
	sess.Failure = ""
	if runErr != nil {
		sess.Status = StatusFailed
		sess.Failure = runErr.Error()
	}
	if err := s.store.Save(persistCtx, sess); err != nil {
		s.logger.Error("import session save", slog.String("session", id), slog.Any("error", err))
	}
	if err := s.history.Record(persistCtx, sess); err != nil {
		s.logger.Error("import history record", slog.String("session", id), slog.Any("error", err))
	}
	if s.reference != nil {
		s.reference.Invalidate(persistCtx)
	}
	s.logger.Info("import executed",
		slog.String("session", id),
		slog.String("status", string(sess.Status)),
		slog.Int("created", res.Created()),
		slog.Int("failed", res.Failed()),
	)
	return sess, runErr
}

func (s *Service) release(ctx context.Context, id string) {
	if err := s.store.Release(context.WithoutCancel(ctx), id); err != nil {
		s.logger.Error("import claim release", slog.String("session", id), slog.Any("error", err))
	}
}

// Recent lists persisted runs.
func (s *Service) Recent(ctx context.Context, limit int) ([]Run, error) {
	return s.history.Recent(ctx, limit)
}
