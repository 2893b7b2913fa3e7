package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/maruel/factsheet/internal/config"
	"github.com/maruel/factsheet/internal/extract"
	"github.com/maruel/factsheet/internal/journal"
	"github.com/maruel/factsheet/internal/metrics"
	"github.com/maruel/factsheet/internal/persist"
	"github.com/maruel/factsheet/internal/rows"
)

// app holds the opened store and its collaborators.
type app struct {
	cfg       *config.Config
	store     *rows.Store
	git       *persist.Git // nil unless git persistence is enabled.
	journal   *journal.Journal
	extractor extract.Extractor
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	f, err := persist.NewFile(cfg.SnapshotPath())
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, extractor: newExtractor(cfg)}
	var p rows.Persister = f
	if cfg.Persistence.Git {
		if a.git, err = persist.NewGit(f, persist.Author{Name: cfg.Persistence.AuthorName, Email: cfg.Persistence.AuthorEmail}); err != nil {
			return nil, fmt.Errorf("failed to open snapshot repository: %w", err)
		}
		p = a.git
	}
	if a.journal, err = journal.Open(ctx, cfg.JournalPath(), cfg.Journal.MaxEntries); err != nil {
		return nil, err
	}
	if a.store, err = rows.Open(ctx, p, rows.WithObserver(a.journal), rows.WithObserver(metrics.StoreObserver{})); err != nil {
		return nil, err
	}
	metrics.SetRows(a.store.Len())
	slog.DebugContext(ctx, "Opened store", "snapshot", f.Path(), "rows", a.store.Len(), "git", cfg.Persistence.Git)
	return a, nil
}

// newExtractor builds the configured extractor, rate limited and instrumented.
func newExtractor(cfg *config.Config) extract.Extractor {
	var ex extract.Extractor
	switch cfg.Extraction.Kind {
	case config.KindRemote:
		ex = &extract.Remote{
			Endpoint: cfg.Extraction.Endpoint,
			Client:   &http.Client{Timeout: cfg.ExtractionTimeout()},
		}
	default:
		ex = &extract.Sample{Delay: cfg.ExtractionDelay()}
	}
	return metrics.Extractor(extract.NewLimited(ex, cfg.Extraction.RatePerMinute, cfg.Extraction.Burst))
}
