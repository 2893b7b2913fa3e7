// Package export builds downloadable JSON and CSV artifacts from rows.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maruel/factsheet/internal/rows"
)

// ErrEmpty is returned when there are no rows to export.
var ErrEmpty = errors.New("no data to export")

// DefaultBaseName is the artifact file name without extension.
const DefaultBaseName = "extracted_data"

// Format is an export format.
type Format string

const (
	// JSON is an indented JSON array of rows.
	JSON Format = "json"
	// CSV has a header line and every field quoted.
	CSV Format = "csv"
)

// ParseFormat parses "json" or "csv", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case JSON, CSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == CSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

// Artifact is a rendered export.
type Artifact struct {
	Name        string
	ContentType string
	Body        []byte
}

// Build renders rs in format f. The file name is baseName plus the format
// extension; an empty baseName uses DefaultBaseName.
func Build(rs []rows.Row, f Format, baseName string) (*Artifact, error) {
	if len(rs) == 0 {
		return nil, ErrEmpty
	}
	if baseName == "" {
		baseName = DefaultBaseName
	}
	var body string
	switch f {
	case JSON:
		s, err := rows.ToJSON(rs)
		if err != nil {
			return nil, err
		}
		body = s
	case CSV:
		body = rows.ToCSV(rs)
	default:
		return nil, fmt.Errorf("unknown export format %q", f)
	}
	return &Artifact{
		Name:        baseName + "." + string(f),
		ContentType: f.ContentType(),
		Body:        []byte(body),
	}, nil
}

// WriteFile writes a into dir and returns the file path.
func WriteFile(dir string, a *Artifact) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: exports are meant to be shared
		return "", err
	}
	p := filepath.Join(dir, a.Name)
	if err := os.WriteFile(p, a.Body, 0o644); err != nil { //nolint:gosec // G306: exports are meant to be shared
		return "", fmt.Errorf("failed to write %s: %w", p, err)
	}
	return p, nil
}
