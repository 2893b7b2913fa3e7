// Handles the schema header and reflection-based column extraction.

package jsonldb

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/invopop/jsonschema"
)

var errSchemaVersionRequired = errors.New("schema version is required")

// currentVersion is the current version of the JSONL table format.
const currentVersion = "1.0"

// columnType represents the type of a table column.
type columnType string

const (
	columnTypeText   columnType = "text"
	columnTypeNumber columnType = "number"
	columnTypeBool   columnType = "bool"
	columnTypeDate   columnType = "date"
	columnTypeJSONB  columnType = "jsonb"
)

// column describes one field of the row type.
type column struct {
	Name        string     `json:"name"`
	Type        columnType `json:"type"`
	Required    bool       `json:"required,omitempty"`
	Description string     `json:"description,omitempty"`
}

// schemaHeader is the first line of a table file.
type schemaHeader struct {
	Version string   `json:"version"`
	Columns []column `json:"columns"`
}

// Validate checks that the schema header is well-formed.
func (h *schemaHeader) Validate() error {
	if h.Version == "" {
		return errSchemaVersionRequired
	}
	if h.Version != currentVersion {
		return fmt.Errorf("unsupported table version %q", h.Version)
	}
	for i, col := range h.Columns {
		if col.Name == "" {
			return fmt.Errorf("column %d: name is required", i)
		}
		switch col.Type {
		case columnTypeText, columnTypeNumber, columnTypeBool, columnTypeDate, columnTypeJSONB:
		default:
			return fmt.Errorf("column %q: unknown type %q", col.Name, col.Type)
		}
	}
	return nil
}

// Schema returns the JSON Schema of T with properties inlined.
//
// Descriptions come from `jsonschema:"description=..."` struct tags.
func Schema[T any]() *jsonschema.Schema {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	return r.ReflectFromType(reflect.TypeFor[T]())
}

// schemaFromType lists T's columns in field order.
func schemaFromType[T any]() ([]column, error) {
	if t := reflect.TypeFor[T](); t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("row type must be a struct, got %s", t.Kind())
	}
	schema := Schema[T]()
	var columns []column
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		columns = append(columns, column{
			Name:        pair.Key,
			Type:        columnTypeOf(pair.Value),
			Required:    slices.Contains(schema.Required, pair.Key),
			Description: pair.Value.Description,
		})
	}
	return columns, nil
}

// columnTypeOf maps a JSON Schema property to a column type.
func columnTypeOf(p *jsonschema.Schema) columnType {
	switch p.Type {
	case "integer", "number":
		return columnTypeNumber
	case "boolean":
		return columnTypeBool
	case "array", "object":
		return columnTypeJSONB
	case "string":
		if p.Format == "date-time" {
			return columnTypeDate
		}
	}
	return columnTypeText
}
