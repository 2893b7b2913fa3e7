// Package extract defines the document extraction collaborator and the
// ingestion of its results into a row store.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maruel/factsheet/internal/rows"
)

// ErrExtractionFailed is returned when the extractor reports a failure.
var ErrExtractionFailed = errors.New("extraction failed")

// Document references the document to extract from: an uploaded file name or
// a URL.
type Document string

// IsURL reports whether the reference looks like an http(s) URL.
func (d Document) IsURL() bool {
	s := strings.ToLower(string(d))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Extractor turns a document into a batch of facts.
//
// Cancelling ctx abandons the extraction; no partial batch is returned.
type Extractor interface {
	Extract(ctx context.Context, doc Document) ([]rows.Input, error)
}

// Ingest runs ex on doc and loads the result into s as one batch.
//
// On failure the returned error wraps ErrExtractionFailed and s is left
// untouched. An abandoned extraction returns the context error.
func Ingest(ctx context.Context, s *rows.Store, ex Extractor, doc Document) ([]rows.Row, error) {
	if strings.TrimSpace(string(doc)) == "" {
		return nil, fmt.Errorf("%w: no document", ErrExtractionFailed)
	}
	start := time.Now()
	batch, err := ex.Extract(ctx, doc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !errors.Is(err, ErrExtractionFailed) {
			err = fmt.Errorf("%w: %w", ErrExtractionFailed, err)
		}
		slog.WarnContext(ctx, "Extraction failed", "doc", doc, "err", err)
		return nil, err
	}
	for i := range batch {
		if err := batch[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrExtractionFailed, i, err)
		}
	}
	created, err := s.Load(ctx, batch)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Extracted", "doc", doc, "rows", len(created), "dur", time.Since(start).Round(time.Millisecond))
	return created, nil
}
