package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/maruel/factsheet/internal/rows"
)

// Remote is an Extractor delegating to an HTTP service.
//
// It POSTs {"document": ...} to Endpoint and expects {"rows": [...]} back.
type Remote struct {
	Endpoint string
	Client   *http.Client
}

type remoteRequest struct {
	Document Document `json:"document"`
}

type remoteResponse struct {
	Rows  []rows.Input `json:"rows"`
	Error string       `json:"error,omitempty"`
}

// Extract implements Extractor.
func (r *Remote) Extract(ctx context.Context, doc Document) ([]rows.Input, error) {
	body, err := json.Marshal(remoteRequest{Document: doc})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrExtractionFailed, err)
	}
	var out remoteResponse
	if len(data) != 0 {
		if err := json.Unmarshal(data, &out); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("%w: failed to decode response: %w", ErrExtractionFailed, err)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != "" {
			return nil, fmt.Errorf("%w: %s: %s", ErrExtractionFailed, resp.Status, out.Error)
		}
		return nil, fmt.Errorf("%w: %s", ErrExtractionFailed, resp.Status)
	}
	if out.Rows == nil {
		out.Rows = []rows.Input{}
	}
	return out.Rows, nil
}
