package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maruel/factsheet/internal/extract"
	"github.com/maruel/factsheet/internal/rows"
	"github.com/maruel/factsheet/internal/server/dto"
)

// RowHandler handles row listing, ingestion, edits and deletion.
type RowHandler struct {
	store          *rows.Store
	extractor      extract.Extractor
	extractTimeout time.Duration
}

// NewRowHandler creates a new row handler. A zero timeout leaves extraction
// bounded only by the request context.
func NewRowHandler(store *rows.Store, extractor extract.Extractor, timeout time.Duration) *RowHandler {
	return &RowHandler{store: store, extractor: extractor, extractTimeout: timeout}
}

// ListRows returns the rows matching the section, search text and optional
// expression, in store order.
func (h *RowHandler) ListRows(ctx context.Context, req *dto.ListRowsRequest) (*dto.RowsResponse, error) {
	where, err := rows.CompilePredicate(req.Where)
	if err != nil {
		return nil, dto.InvalidField("where", err.Error()).Wrap(err)
	}
	all := h.store.Snapshot()
	visible := rows.Filter(all, rows.Criteria{
		Section: rows.ParseSection(req.Section),
		Search:  req.Q,
		Where:   where,
	})
	return &dto.RowsResponse{Rows: rowsToDTO(visible), Total: len(all)}, nil
}

// ListSections returns the distinct sections in order of first appearance.
func (h *RowHandler) ListSections(ctx context.Context, req *dto.ListSectionsRequest) (*dto.ListSectionsResponse, error) {
	return &dto.ListSectionsResponse{Sections: rows.DistinctSections(h.store.Snapshot())}, nil
}

// LoadSample loads the sample batch, optionally replacing every row.
func (h *RowHandler) LoadSample(ctx context.Context, req *dto.LoadSampleRequest) (*dto.RowsResponse, error) {
	load := h.store.Load
	if req.Replace {
		load = h.store.Replace
	}
	created, err := load(ctx, extract.SampleRows())
	if err != nil {
		return nil, err
	}
	return &dto.RowsResponse{Rows: rowsToDTO(created), Total: h.store.Len()}, nil
}

// Extract runs the extractor on a document and loads the result.
func (h *RowHandler) Extract(ctx context.Context, req *dto.ExtractRequest) (*dto.RowsResponse, error) {
	if h.extractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.extractTimeout)
		defer cancel()
	}
	created, err := extract.Ingest(ctx, h.store, h.extractor, extract.Document(req.Document))
	if err != nil {
		if errors.Is(err, extract.ErrExtractionFailed) {
			return nil, dto.ExtractionFailed(err)
		}
		return nil, err
	}
	return &dto.RowsResponse{Rows: rowsToDTO(created), Total: h.store.Len()}, nil
}

// UpdateRow edits one field of one row and returns the updated row.
func (h *RowHandler) UpdateRow(ctx context.Context, req *dto.UpdateRowRequest) (*dto.Row, error) {
	id, err := decodeRowID(req.ID)
	if err != nil {
		return nil, err
	}
	e, err := decodeEdit(req.Field, req.Value)
	if err != nil {
		return nil, err
	}
	if err := h.store.Update(ctx, id, e); err != nil {
		return nil, err
	}
	r, err := h.store.Get(id)
	if err != nil {
		return nil, err
	}
	out := rowToDTO(&r)
	return &out, nil
}

// DeleteRow removes one row.
func (h *RowHandler) DeleteRow(ctx context.Context, req *dto.DeleteRowRequest) (*dto.DeleteRowResponse, error) {
	id, err := decodeRowID(req.ID)
	if err != nil {
		return nil, err
	}
	if err := h.store.Delete(ctx, id); err != nil {
		if errors.Is(err, rows.ErrNotFound) {
			slog.InfoContext(ctx, "Row already removed", "id", id)
		}
		return nil, err
	}
	return &dto.DeleteRowResponse{ID: id.String(), Total: h.store.Len()}, nil
}
