package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/maruel/factsheet/internal/server/dto"
)

// writeErrorResponse reports err from a handler that writes its own response
// instead of going through server.Wrap.
func writeErrorResponse(w http.ResponseWriter, err error) {
	apiErr := dto.AsAPIError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode())
	if err := json.NewEncoder(w).Encode(apiErr.Response()); err != nil {
		slog.Error("Failed to encode error response", "err", err)
	}
}
