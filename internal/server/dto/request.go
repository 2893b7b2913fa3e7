package dto

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Validatable is implemented by every request type.
type Validatable interface {
	Validate() error
}

// HealthRequest is a request to check the server health.
type HealthRequest struct{}

// Validate is a no-op for HealthRequest.
func (r *HealthRequest) Validate() error {
	return nil
}

// --- Rows ---

// ListRowsRequest is a request for the filtered view of the rows.
type ListRowsRequest struct {
	// Section is a section name; "" or "All" matches every section.
	Section string `query:"section"`
	// Q is matched case-insensitively against key, value and source span.
	Q string `query:"q"`
	// Where is an optional boolean expression, e.g. `confidence < 0.8`.
	Where string `query:"where"`
}

// Validate is a no-op for ListRowsRequest; Where is checked on compilation.
func (r *ListRowsRequest) Validate() error {
	return nil
}

// ListSectionsRequest is a request for the distinct sections.
type ListSectionsRequest struct{}

// Validate is a no-op for ListSectionsRequest.
func (r *ListSectionsRequest) Validate() error {
	return nil
}

// LoadSampleRequest loads the sample batch.
type LoadSampleRequest struct {
	// Replace discards existing rows first.
	Replace bool `json:"replace"`
}

// Validate is a no-op for LoadSampleRequest.
func (r *LoadSampleRequest) Validate() error {
	return nil
}

// ExtractRequest runs the extractor on a document and loads the result.
type ExtractRequest struct {
	Document string `json:"document"`
}

// Validate validates the extract request fields.
func (r *ExtractRequest) Validate() error {
	if strings.TrimSpace(r.Document) == "" {
		return MissingField("document")
	}
	return nil
}

// UpdateRowRequest edits one field of one row.
//
// Value is a JSON string for text fields, a number (or numeric string) for
// confidence, and may be null for sourceSpan to clear it.
type UpdateRowRequest struct {
	ID    string          `path:"id" json:"-"`
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// Validate validates the update request fields.
func (r *UpdateRowRequest) Validate() error {
	if r.ID == "" {
		return MissingField("id")
	}
	if r.Field == "" {
		return MissingField("field")
	}
	if len(bytes.TrimSpace(r.Value)) == 0 {
		return MissingField("value")
	}
	return nil
}

// DeleteRowRequest deletes one row.
type DeleteRowRequest struct {
	ID string `path:"id" json:"-"`
}

// Validate validates the delete request fields.
func (r *DeleteRowRequest) Validate() error {
	if r.ID == "" {
		return MissingField("id")
	}
	return nil
}

// --- History ---

// ListJournalRequest lists the newest journal entries.
type ListJournalRequest struct {
	Limit int `query:"limit"`
}

// Validate validates the journal request fields.
func (r *ListJournalRequest) Validate() error {
	if r.Limit < 0 {
		return InvalidField("limit", "must not be negative")
	}
	return nil
}

// ListRevisionsRequest lists the newest snapshot revisions.
type ListRevisionsRequest struct {
	Limit int `query:"limit"`
}

// Validate validates the revisions request fields.
func (r *ListRevisionsRequest) Validate() error {
	if r.Limit < 0 {
		return InvalidField("limit", "must not be negative")
	}
	return nil
}

// SchemaRequest is a request for the row JSON Schema.
type SchemaRequest struct{}

// Validate is a no-op for SchemaRequest.
func (r *SchemaRequest) Validate() error {
	return nil
}
