// Package jsonldb provides a small generic, concurrent-safe, JSONL-backed table.
//
// # Overview
//
// [Table] keeps every row in memory and mirrors them to a JSON Lines file.
// Appends are written in place; [Table.Replace] rewrites the whole file.
//
// # File Format
//
// Line 1 is a schema header describing the columns of T, derived by reflection
// with github.com/invopop/jsonschema. Each following line is one JSON row.
package jsonldb
