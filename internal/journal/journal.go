// Package journal records every committed row mutation to a JSONL file.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/maruel/factsheet/internal/jsonldb"
	"github.com/maruel/factsheet/internal/rows"
	"github.com/maruel/ksid"
)

// Entry is one committed mutation.
type Entry struct {
	ID     ksid.ID    `json:"id" jsonschema:"description=Entry identifier"`
	Time   time.Time  `json:"time" jsonschema:"description=Commit time"`
	Op     rows.Op    `json:"op" jsonschema:"description=Mutation kind (load replace update delete)"`
	RowIDs []ksid.ID  `json:"rowIds,omitempty" jsonschema:"description=Rows created updated or deleted"`
	Field  rows.Field `json:"field,omitempty" jsonschema:"description=Edited field for updates"`
	Count  int        `json:"count" jsonschema:"description=Number of rows after the mutation"`
}

// Clone returns a deep copy.
func (e Entry) Clone() Entry {
	e.RowIDs = slices.Clone(e.RowIDs)
	return e
}

// Journal is a rows.Observer persisting one Entry per change.
type Journal struct {
	table *jsonldb.Table[Entry]
	now   func() time.Time
}

// Open loads the journal at path, compacting it to the newest maxEntries
// entries when it is larger. maxEntries <= 0 disables compaction.
func Open(ctx context.Context, path string, maxEntries int) (*Journal, error) {
	table, err := jsonldb.NewTable[Entry](path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	j := &Journal{table: table, now: time.Now}
	if n := table.Len(); maxEntries > 0 && n > maxEntries {
		all := slices.Collect(table.All())
		if err := table.Replace(all[n-maxEntries:]); err != nil {
			return nil, fmt.Errorf("failed to compact journal: %w", err)
		}
		slog.InfoContext(ctx, "Compacted journal", "dropped", n-maxEntries, "kept", maxEntries)
	}
	return j, nil
}

// OnChange implements rows.Observer.
//
// A failure to append is logged; the mutation itself is already committed.
func (j *Journal) OnChange(ctx context.Context, c rows.Change) {
	e := Entry{
		ID:     ksid.NewID(),
		Time:   j.now().UTC(),
		Op:     c.Op,
		RowIDs: slices.Clone(c.IDs),
		Field:  c.Field,
		Count:  c.Len,
	}
	if err := j.table.Append(e); err != nil {
		slog.WarnContext(ctx, "Failed to append journal entry", "op", c.Op, "err", err)
	}
}

// Len returns the number of entries.
func (j *Journal) Len() int {
	return j.table.Len()
}

// Recent returns up to n entries, newest first. n <= 0 returns all of them.
func (j *Journal) Recent(n int) []Entry {
	all := slices.Collect(j.table.All())
	slices.Reverse(all)
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	if all == nil {
		all = []Entry{}
	}
	return all
}
