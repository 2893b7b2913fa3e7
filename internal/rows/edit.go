// Defines typed single-field edits applied by Store.Update.

package rows

import (
	"fmt"
	"strconv"
	"strings"
)

// Field names a mutable row field.
type Field string

const (
	// FieldSection is Row.Section.
	FieldSection Field = "section"
	// FieldKey is Row.Key.
	FieldKey Field = "key"
	// FieldValue is Row.Value.
	FieldValue Field = "value"
	// FieldConfidence is Row.Confidence.
	FieldConfidence Field = "confidence"
	// FieldSourceSpan is Row.SourceSpan.
	FieldSourceSpan Field = "sourceSpan"
)

// Fields lists the mutable fields in column order.
var Fields = []Field{FieldSection, FieldKey, FieldValue, FieldConfidence, FieldSourceSpan}

// Edit replaces exactly one field of a row.
//
// The concrete types are SetSection, SetKey, SetValue, SetConfidence,
// SetSourceSpan and ClearSourceSpan.
type Edit interface {
	Field() Field
	apply(r *Row) error
}

// SetSection replaces Row.Section.
type SetSection string

// Field implements Edit.
func (SetSection) Field() Field { return FieldSection }

func (e SetSection) apply(r *Row) error {
	r.Section = string(e)
	return nil
}

// SetKey replaces Row.Key.
type SetKey string

// Field implements Edit.
func (SetKey) Field() Field { return FieldKey }

func (e SetKey) apply(r *Row) error {
	r.Key = string(e)
	return nil
}

// SetValue replaces Row.Value.
type SetValue string

// Field implements Edit.
func (SetValue) Field() Field { return FieldValue }

func (e SetValue) apply(r *Row) error {
	r.Value = string(e)
	return nil
}

// SetConfidence replaces Row.Confidence. The value must be finite.
type SetConfidence float64

// Field implements Edit.
func (SetConfidence) Field() Field { return FieldConfidence }

func (e SetConfidence) apply(r *Row) error {
	if err := checkConfidence(float64(e)); err != nil {
		return err
	}
	r.Confidence = float64(e)
	return nil
}

// SetSourceSpan sets Row.SourceSpan, including to the empty string.
type SetSourceSpan string

// Field implements Edit.
func (SetSourceSpan) Field() Field { return FieldSourceSpan }

func (e SetSourceSpan) apply(r *Row) error {
	s := string(e)
	r.SourceSpan = &s
	return nil
}

// ClearSourceSpan marks Row.SourceSpan as absent.
type ClearSourceSpan struct{}

// Field implements Edit.
func (ClearSourceSpan) Field() Field { return FieldSourceSpan }

func (ClearSourceSpan) apply(r *Row) error {
	r.SourceSpan = nil
	return nil
}

// ParseField returns the Field named by s.
func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown field %q", ErrInvalidEdit, s)
}

// ParseEdit builds an Edit from a field name and its textual value.
//
// A confidence value must parse as a finite decimal number.
func ParseEdit(field, raw string) (Edit, error) {
	f, err := ParseField(field)
	if err != nil {
		return nil, err
	}
	switch f {
	case FieldSection:
		return SetSection(raw), nil
	case FieldKey:
		return SetKey(raw), nil
	case FieldValue:
		return SetValue(raw), nil
	case FieldConfidence:
		c, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: confidence %q is not a number", ErrInvalidEdit, raw)
		}
		if err := checkConfidence(c); err != nil {
			return nil, err
		}
		return SetConfidence(c), nil
	case FieldSourceSpan:
		return SetSourceSpan(raw), nil
	}
	return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidEdit, field)
}
