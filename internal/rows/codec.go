// Converts row collections to and from their CSV and JSON text forms.

package rows

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/maruel/ksid"
)

// CSVHeader is the first line of every CSV export.
const CSVHeader = "section,key,value,confidence,sourceSpan"

// ToCSV renders rows as CSV.
//
// Every field is double-quoted with embedded quotes doubled. An absent source
// span renders as an empty field. Lines are joined by "\n" with no trailing
// newline.
func ToCSV(rows []Row) string {
	var b strings.Builder
	b.WriteString(CSVHeader)
	for i := range rows {
		r := &rows[i]
		b.WriteByte('\n')
		writeCSVFields(&b, r.Section, r.Key, r.Value, FormatConfidence(r.Confidence), r.Span())
	}
	return b.String()
}

func writeCSVFields(b *strings.Builder, fields ...string) {
	for i, f := range fields {
		if i != 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
}

// FormatConfidence returns the shortest decimal text for c.
func FormatConfidence(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}

// ToJSON renders rows as an indented JSON array, the lossless export format.
//
// Zero rows render as "[]".
func ToJSON(rows []Row) (string, error) {
	if rows == nil {
		rows = []Row{}
	}
	var buf bytes.Buffer
	e := json.NewEncoder(&buf)
	e.SetEscapeHTML(false)
	e.SetIndent("", "  ")
	if err := e.Encode(rows); err != nil {
		return "", fmt.Errorf("failed to encode rows: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// FromJSON decodes text produced by ToJSON.
//
// It returns an error wrapping ErrMalformedInput when text is not a JSON array
// of rows, carries trailing data, or violates identity uniqueness.
func FromJSON(text string) ([]Row, error) {
	d := json.NewDecoder(strings.NewReader(text))
	d.DisallowUnknownFields()
	var out []Row
	if err := d.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformedInput)
	}
	if _, err := d.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after array", ErrMalformedInput)
	}
	seen := make(map[ksid.ID]struct{}, len(out))
	for i := range out {
		id := out[i].ID
		if id.IsZero() {
			return nil, fmt.Errorf("%w: row %d has no id", ErrMalformedInput, i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrMalformedInput, id)
		}
		seen[id] = struct{}{}
	}
	return out, nil
}
