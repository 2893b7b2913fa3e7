package handlers

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/maruel/factsheet/internal/export"
	"github.com/maruel/factsheet/internal/rows"
	"github.com/maruel/factsheet/internal/server/dto"
)

// ExportHandler serves export downloads.
type ExportHandler struct {
	store    *rows.Store
	baseName string
}

// NewExportHandler creates a new export handler.
func NewExportHandler(store *rows.Store, baseName string) *ExportHandler {
	return &ExportHandler{store: store, baseName: baseName}
}

// Download writes every row as an attachment in the format named by the
// {format} path parameter.
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeErrorResponse(w, dto.InvalidField("format", err.Error()))
		return
	}
	a, err := export.Build(h.store.Snapshot(), f, h.baseName)
	if err != nil {
		if errors.Is(err, export.ErrEmpty) {
			writeErrorResponse(w, dto.NoData().Wrap(err))
			return
		}
		slog.ErrorContext(ctx, "Failed to build export", "format", f, "err", err)
		writeErrorResponse(w, dto.InternalWithError("Failed to build export", err))
		return
	}
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(a.Body); err != nil {
		slog.WarnContext(ctx, "Failed to write export", "err", err)
	}
}
