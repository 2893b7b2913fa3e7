package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/maruel/factsheet/internal/journal"
	"github.com/maruel/factsheet/internal/persist"
	"github.com/maruel/factsheet/internal/rows"
	"github.com/maruel/factsheet/internal/server/dto"
	"github.com/maruel/ksid"
)

// --- ID decoding helpers ---

func decodeRowID(s string) (ksid.ID, error) {
	id, err := ksid.Parse(s)
	if err != nil || id.IsZero() {
		return 0, dto.InvalidField("id", fmt.Sprintf("%q is not a row identifier", s))
	}
	return id, nil
}

// --- Time formatting ---

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// --- Domain to DTO conversions ---

func rowToDTO(r *rows.Row) dto.Row {
	out := dto.Row{
		ID:         r.ID.String(),
		Section:    r.Section,
		Key:        r.Key,
		Value:      r.Value,
		Confidence: r.Confidence,
	}
	if r.SourceSpan != nil {
		s := *r.SourceSpan
		out.SourceSpan = &s
	}
	return out
}

func rowsToDTO(rs []rows.Row) []dto.Row {
	out := make([]dto.Row, len(rs))
	for i := range rs {
		out[i] = rowToDTO(&rs[i])
	}
	return out
}

func journalEntryToDTO(e *journal.Entry) dto.JournalEntry {
	out := dto.JournalEntry{
		ID:    e.ID.String(),
		Time:  formatTime(e.Time),
		Op:    string(e.Op),
		Field: string(e.Field),
		Count: e.Count,
	}
	for _, id := range e.RowIDs {
		out.RowIDs = append(out.RowIDs, id.String())
	}
	return out
}

func revisionToDTO(r *persist.Revision) dto.Revision {
	return dto.Revision{
		Hash:    r.Hash,
		Message: r.Message,
		Author:  r.Author,
		Date:    formatTime(r.Date),
	}
}

// --- Edit decoding ---

// decodeEdit converts a PATCH field and JSON value into a typed edit.
//
// Text fields take a JSON string. confidence takes a number or a numeric
// string. A null sourceSpan clears it.
func decodeEdit(field string, value json.RawMessage) (rows.Edit, error) {
	f, err := rows.ParseField(field)
	if err != nil {
		return nil, err
	}
	v := bytes.TrimSpace(value)
	switch {
	case bytes.Equal(v, []byte("null")):
		if f == rows.FieldSourceSpan {
			return rows.ClearSourceSpan{}, nil
		}
		return nil, fmt.Errorf("%w: %s cannot be null", rows.ErrInvalidEdit, f)
	case len(v) > 0 && v[0] == '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, fmt.Errorf("%w: %w", rows.ErrInvalidEdit, err)
		}
		return rows.ParseEdit(field, s)
	case f == rows.FieldConfidence && len(v) > 0 && strings.ContainsRune("-0123456789", rune(v[0])):
		var n json.Number
		if err := json.Unmarshal(v, &n); err != nil {
			return nil, fmt.Errorf("%w: %w", rows.ErrInvalidEdit, err)
		}
		return rows.ParseEdit(field, n.String())
	default:
		return nil, fmt.Errorf("%w: unexpected value %s for %s", rows.ErrInvalidEdit, v, f)
	}
}
