package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"

	"github.com/hirepurchase/hpadmin/internal/platform/httpx"
	"github.com/hirepurchase/hpadmin/internal/reference"
	"github.com/hirepurchase/hpadmin/internal/xlsxtemplate"
)

const defaultMaxUpload = 10 << 20

// ImportService is the orchestration contract used by the handler.
type ImportService interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Execute(ctx context.Context, id string, progress ProgressFunc) (*Session, error)
	Recent(ctx context.Context, limit int) ([]Run, error)
}

// SnapshotSource provides reference data for the template.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*reference.Snapshot, error)
}

// Enqueuer schedules background execution of a session.
type Enqueuer interface {
	EnqueueImport(ctx context.Context, sessionID string) (string, error)
}

// ReportRenderer renders a PDF summary of an executed session.
type ReportRenderer interface {
	RenderImportReport(ctx context.Context, sess *Session) ([]byte, error)
}

// Handler serves the bulk-import endpoints.
type Handler struct {
	logger    *slog.Logger
	service   ImportService
	snapshots SnapshotSource
	enqueuer  Enqueuer
	reports   ReportRenderer
	maxUpload int64
	now       func() time.Time
}

// NewHandler constructs the import handler. snapshots, enqueuer and reports
// may be nil; the related endpoints then degrade or answer 503.
func NewHandler(logger *slog.Logger, service ImportService, snapshots SnapshotSource, enqueuer Enqueuer, reports ReportRenderer, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &Handler{
		logger:    logger,
		service:   service,
		snapshots: snapshots,
		enqueuer:  enqueuer,
		reports:   reports,
		maxUpload: maxUpload,
		now:       time.Now,
	}
}

// MountRoutes registers import routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/template", h.template)
	r.Get("/history", h.history)
	r.Post("/", h.upload)
	r.Get("/{id}", h.get)
	r.Post("/{id}/execute", h.execute)
	r.Get("/{id}/report.pdf", h.report)
}

type sessionResponse struct {
	ID         string           `json:"id"`
	Filename   string           `json:"filename"`
	UploadedAt time.Time        `json:"uploaded_at"`
	Status     Status           `json:"status"`
	Counts     map[string]int   `json:"counts"`
	Errors     ValidationErrors `json:"errors"`
	Result     *Result          `json:"result,omitempty"`
	Failure    string           `json:"failure,omitempty"`
	TaskID     string           `json:"task_id,omitempty"`
}

func toResponse(sess *Session) sessionResponse {
	errs := sess.Errors
	if errs == nil {
		errs = ValidationErrors{}
	}
	return sessionResponse{
		ID:         sess.ID,
		Filename:   sess.Filename,
		UploadedAt: sess.UploadedAt,
		Status:     sess.Status,
		Counts:     sess.Counts,
		Errors:     errs,
		Result:     sess.Result,
		Failure:    sess.Failure,
	}
}

func (h *Handler) template(w http.ResponseWriter, r *http.Request) {
	var snap *reference.Snapshot
	if h.snapshots != nil && !cast.ToBool(r.URL.Query().Get("blank")) {
		var err error
		snap, err = h.snapshots.Snapshot(r.Context())
		if err != nil {
			h.logger.Error("load reference snapshot", slog.Any("error", err))
			httpx.RespondError(w, fmt.Errorf("%w: reference data", httpx.ErrUpstream))
			return
		}
	}
	var buf bytes.Buffer
	if err := xlsxtemplate.Write(&buf, snap, xlsxtemplate.Options{Now: h.now()}); err != nil {
		var missing *xlsxtemplate.MissingReferenceError
		if errors.As(err, &missing) {
			httpx.JSON(w, http.StatusConflict, httpx.ProblemDetail{
				Title:  "Conflict",
				Status: http.StatusConflict,
				Detail: "reference data is incomplete",
				Errors: missing.Problems,
			})
			return
		}
		h.logger.Error("build template", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxtemplate.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", xlsxtemplate.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.RespondError(w, fmt.Errorf("%w: limit is %d bytes", httpx.ErrTooLarge, h.maxUpload))
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "multipart field \"file\" is required")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	sess, err := h.service.Upload(r.Context(), header.Filename, file)
	if err != nil {
		var fre *FileReadError
		if errors.As(err, &fre) {
			httpx.Problem(w, http.StatusBadRequest, "Unreadable Workbook", fre.Error())
			return
		}
		h.logger.Error("upload import", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	status := http.StatusCreated
	if !sess.Importable() {
		status = http.StatusUnprocessableEntity
	}
	httpx.JSON(w, status, toResponse(sess))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(sess))
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if cast.ToBool(r.URL.Query().Get("async")) && h.enqueuer != nil {
		sess, err := h.service.Get(r.Context(), id)
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
		if !sess.Importable() {
			h.respondServiceError(w, ErrNotImportable)
			return
		}
		taskID, err := h.enqueuer.EnqueueImport(r.Context(), id)
		if err != nil {
			h.logger.Error("enqueue import", slog.String("session", id), slog.Any("error", err))
			httpx.RespondError(w, fmt.Errorf("%w: queue", httpx.ErrUpstream))
			return
		}
		resp := toResponse(sess)
		resp.TaskID = taskID
		httpx.JSON(w, http.StatusAccepted, resp)
		return
	}

	// The batch outlives the request deadline; its outcome is stored on the
	// session and can be fetched with GET /{id}.
	sess, err := h.service.Execute(context.WithoutCancel(r.Context()), id, func(msg string) {
		h.logger.Info("import progress", slog.String("session", id), slog.String("step", msg))
	})
	if err != nil {
		var berr *BatchError
		if errors.As(err, &berr) && sess != nil {
			httpx.JSON(w, http.StatusInternalServerError, toResponse(sess))
			return
		}
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(sess))
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "report rendering is not configured")
		return
	}
	sess, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if sess.Result == nil {
		httpx.Problem(w, http.StatusConflict, "Conflict", "session has not been executed")
		return
	}
	pdf, err := h.reports.RenderImportReport(r.Context(), sess)
	if err != nil {
		h.logger.Error("render import report", slog.String("session", sess.ID), slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: report renderer", httpx.ErrUpstream))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "import_"+sess.ID+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	runs, err := h.service.Recent(r.Context(), cast.ToInt(r.URL.Query().Get("limit")))
	if err != nil {
		h.logger.Error("list import history", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if runs == nil {
		runs = []Run{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: import session", httpx.ErrNotFound))
	case errors.Is(err, ErrNotImportable):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrConflict, err))
	case errors.Is(err, ErrAlreadyExecuted):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrConflict, err))
	default:
		h.logger.Error("import request", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
