package handlers

import (
	"context"

	"github.com/maruel/factsheet/internal/rows"
	"github.com/maruel/factsheet/internal/server/dto"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	version string
	store   *rows.Store
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string, store *rows.Store) *HealthHandler {
	return &HealthHandler{version: version, store: store}
}

// Health handles health check requests.
func (h *HealthHandler) Health(ctx context.Context, req *dto.HealthRequest) (*dto.HealthResponse, error) {
	return &dto.HealthResponse{
		Status:  "ok",
		Version: h.version,
		Rows:    h.store.Len(),
	}, nil
}
