// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/maruel/factsheet/internal/extract"
	"github.com/maruel/factsheet/internal/journal"
	"github.com/maruel/factsheet/internal/metrics"
	"github.com/maruel/factsheet/internal/rows"
	"github.com/maruel/factsheet/internal/server/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options are the dependencies of the router.
type Options struct {
	Store     *rows.Store
	Extractor extract.Extractor
	// ExtractionTimeout bounds one extraction; zero means unbounded.
	ExtractionTimeout time.Duration
	// Journal is optional.
	Journal *journal.Journal
	// Revisions is optional.
	Revisions      handlers.Revisioner
	ExportBaseName string
	Version        string
}

// NewRouter creates and configures the HTTP router.
// Serves API endpoints at /api/* and Prometheus metrics at /metrics.
func NewRouter(opts *Options) http.Handler {
	rh := handlers.NewRowHandler(opts.Store, opts.Extractor, opts.ExtractionTimeout)
	hh := handlers.NewHealthHandler(opts.Version, opts.Store)
	eh := handlers.NewExportHandler(opts.Store, opts.ExportBaseName)
	historyh := handlers.NewHistoryHandler(opts.Journal, opts.Revisions)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())
	r.Use(commitMessages)

	r.Method("GET", "/api/health", Wrap(hh.Health))

	// Rows
	r.Method("GET", "/api/rows", Wrap(rh.ListRows))
	r.Method("GET", "/api/sections", Wrap(rh.ListSections))
	r.Method("POST", "/api/rows/sample", Wrap(rh.LoadSample))
	r.Method("POST", "/api/extract", Wrap(rh.Extract))
	r.Method("PATCH", "/api/rows/{id}", Wrap(rh.UpdateRow))
	r.Method("DELETE", "/api/rows/{id}", Wrap(rh.DeleteRow))

	// Export
	r.Get("/api/export/{format}", eh.Download)

	// History
	r.Method("GET", "/api/journal", Wrap(historyh.ListJournal))
	r.Method("GET", "/api/revisions", Wrap(historyh.ListRevisions))
	r.Method("GET", "/api/schema", Wrap(historyh.Schema))

	r.Handle("/metrics", promhttp.Handler())
	return r
}
