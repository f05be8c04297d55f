package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hirepurchase/hpadmin/internal/importer"
	"github.com/hirepurchase/hpadmin/internal/installment"
	"github.com/hirepurchase/hpadmin/internal/observability"
	"github.com/hirepurchase/hpadmin/jobs"
	"github.com/hirepurchase/hpadmin/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	ImportHandler      *importer.Handler
	InstallmentHandler *installment.Handler
	JobHandler         *jobs.Handler
	ReportHandler      *report.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with hpadmin defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.ImportHandler != nil {
		r.Route("/imports", params.ImportHandler.MountRoutes)
	}
	if params.InstallmentHandler != nil {
		r.Route("/installments", params.InstallmentHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.ReportHandler != nil {
		r.Route("/report", params.ReportHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
