// Defines the row entity and the batch input used to create rows.

package rows

import (
	"fmt"
	"math"

	"github.com/maruel/ksid"
)

// Row is one extracted fact.
type Row struct {
	ID         ksid.ID `json:"id" jsonschema:"description=Unique row identifier"`
	Section    string  `json:"section" jsonschema:"description=Free-text category label"`
	Key        string  `json:"key" jsonschema:"description=Field name within the section"`
	Value      string  `json:"value" jsonschema:"description=Field value"`
	Confidence float64 `json:"confidence" jsonschema:"description=Extraction confidence, nominally 0 to 1"`
	// SourceSpan is nil when the extractor reported no provenance.
	SourceSpan *string `json:"sourceSpan,omitempty" jsonschema:"description=Page or figure locator"`
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	if r.SourceSpan != nil {
		s := *r.SourceSpan
		r.SourceSpan = &s
	}
	return r
}

// GetID returns the row's identity.
func (r Row) GetID() ksid.ID {
	return r.ID
}

// Span returns the source span, or "" when absent.
func (r Row) Span() string {
	if r.SourceSpan == nil {
		return ""
	}
	return *r.SourceSpan
}

// Input is a row as produced by an extractor, before it has an identity.
type Input struct {
	Section    string  `json:"section"`
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	SourceSpan *string `json:"sourceSpan,omitempty"`
}

// Validate checks that the input can be stored and persisted.
func (in *Input) Validate() error {
	if err := checkConfidence(in.Confidence); err != nil {
		return err
	}
	return nil
}

func (in *Input) toRow(id ksid.ID) Row {
	r := Row{
		ID:         id,
		Section:    in.Section,
		Key:        in.Key,
		Value:      in.Value,
		Confidence: in.Confidence,
	}
	if in.SourceSpan != nil {
		s := *in.SourceSpan
		r.SourceSpan = &s
	}
	return r
}

// checkConfidence rejects values that JSON cannot represent.
//
// Out of range values are accepted.
func checkConfidence(c float64) error {
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return fmt.Errorf("%w: confidence must be a finite number, got %v", ErrInvalidEdit, c)
	}
	return nil
}

// Ptr returns a pointer to s. Handy for literal source spans.
func Ptr(s string) *string {
	return &s
}
