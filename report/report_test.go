package report

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/hirepurchase/hpadmin/internal/importer"
	"github.com/hirepurchase/hpadmin/internal/sheets"
)

func executedSession() *importer.Session {
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	return &importer.Session{
		ID:       "s-1",
		Filename: "june.xlsx",
		Status:   importer.StatusCompleted,
		Counts:   map[string]int{sheets.Customers: 3, sheets.Branches: 1},
		Result: &importer.Result{
			Success: true,
			Entities: map[string]*importer.EntitySummary{
				sheets.Customers: {Success: 2, Errors: []string{"Customer C003: name is required"}},
				sheets.Branches:  {Success: 1},
			},
			StartedAt:  start,
			FinishedAt: start.Add(time.Minute),
		},
	}
}

func TestNewReportDataOrdersSheets(t *testing.T) {
	data := NewReportData(executedSession(), time.Now())

	require.Len(t, data.Rows, 2)
	require.Equal(t, sheets.Branches, data.Rows[0].Sheet)
	require.Equal(t, sheets.Customers, data.Rows[1].Sheet)
	require.Equal(t, 3, data.Rows[1].Input)
	require.Equal(t, 3, data.Created())
	require.Equal(t, 1, data.Failed())
}

func TestRenderImportHTMLEscapesErrors(t *testing.T) {
	sess := executedSession()
	sess.Result.Entities[sheets.Customers].Errors = []string{"Customer <C003>: rejected"}

	html, err := RenderImportHTML(NewReportData(sess, time.Now()))
	require.NoError(t, err)
	require.Contains(t, html, "june.xlsx")
	require.Contains(t, html, "Created 3 rows, 1 rejected.")
	require.Contains(t, html, "Customer &lt;C003&gt;: rejected")
}

func TestRendererPostsHTMLToGotenberg(t *testing.T) {
	var received string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/chromium/convert/html" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		file, _, err := r.FormFile("files")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		raw, _ := io.ReadAll(file)
		received = string(raw)
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	pdf, err := NewRenderer(NewClient(srv.URL)).RenderImportReport(context.Background(), executedSession())
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7", string(pdf))
	require.True(t, strings.Contains(received, "Customer C003: name is required"))
}

func TestPingHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := chi.NewRouter()
	r.Route("/report", NewHandler(NewClient(srv.URL), slog.New(slog.NewTextHandler(io.Discard, nil))).MountRoutes)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report/ping", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
