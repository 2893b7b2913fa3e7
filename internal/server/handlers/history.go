package handlers

import (
	"context"

	"github.com/invopop/jsonschema"
	"github.com/maruel/factsheet/internal/journal"
	"github.com/maruel/factsheet/internal/jsonldb"
	"github.com/maruel/factsheet/internal/persist"
	"github.com/maruel/factsheet/internal/server/dto"
)

const defaultHistoryLimit = 50

// Revisioner lists committed snapshot revisions.
type Revisioner interface {
	Revisions(ctx context.Context, n int) ([]persist.Revision, error)
}

// HistoryHandler serves the mutation journal, snapshot revisions and the
// row schema.
type HistoryHandler struct {
	journal   *journal.Journal
	revisions Revisioner
}

// NewHistoryHandler creates a new history handler. Either source may be nil
// when disabled.
func NewHistoryHandler(j *journal.Journal, r Revisioner) *HistoryHandler {
	return &HistoryHandler{journal: j, revisions: r}
}

// ListJournal returns the newest journal entries first.
func (h *HistoryHandler) ListJournal(ctx context.Context, req *dto.ListJournalRequest) (*dto.ListJournalResponse, error) {
	if h.journal == nil {
		return nil, dto.NotImplemented("journal")
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultHistoryLimit
	}
	entries := h.journal.Recent(limit)
	out := &dto.ListJournalResponse{Entries: make([]dto.JournalEntry, len(entries))}
	for i := range entries {
		out.Entries[i] = journalEntryToDTO(&entries[i])
	}
	return out, nil
}

// ListRevisions returns the newest snapshot revisions first.
func (h *HistoryHandler) ListRevisions(ctx context.Context, req *dto.ListRevisionsRequest) (*dto.ListRevisionsResponse, error) {
	if h.revisions == nil {
		return nil, dto.NotImplemented("snapshot revisions")
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultHistoryLimit
	}
	revs, err := h.revisions.Revisions(ctx, limit)
	if err != nil {
		return nil, dto.InternalWithError("Failed to list revisions", err)
	}
	out := &dto.ListRevisionsResponse{Revisions: make([]dto.Revision, len(revs))}
	for i := range revs {
		out.Revisions[i] = revisionToDTO(&revs[i])
	}
	return out, nil
}

// Schema returns the JSON Schema of a row as served by the API.
func (h *HistoryHandler) Schema(ctx context.Context, req *dto.SchemaRequest) (*jsonschema.Schema, error) {
	return jsonldb.Schema[dto.Row](), nil
}
