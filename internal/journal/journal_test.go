package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/maruel/factsheet/internal/rows"
)

type memPersister struct {
	data []byte
}

func (m *memPersister) Save(_ context.Context, b []byte) error {
	m.data = append([]byte(nil), b...)
	return nil
}

func (m *memPersister) LoadAtStartup(context.Context) ([]byte, bool, error) {
	return m.data, m.data != nil, nil
}

func TestJournal(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := Open(ctx, path, 0)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return now }

	s, err := rows.Open(ctx, &memPersister{}, rows.WithObserver(j))
	if err != nil {
		t.Fatal(err)
	}
	created, err := s.Load(ctx, []rows.Input{
		{Section: "Formulation", Key: "Drug", Value: "Curcumin", Confidence: 0.9},
		{Section: "Formulation", Key: "Ratio", Value: "1:1", Confidence: 0.7},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Update(ctx, created[0].ID, rows.SetValue("Quercetin")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, created[1].ID); err != nil {
		t.Fatal(err)
	}
	// Failed mutations are not journaled.
	if err := s.Delete(ctx, created[1].ID); err == nil {
		t.Fatal("expected error")
	}

	got := j.Recent(0)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(got), got)
	}
	if got[0].Op != rows.OpDelete || got[0].Count != 1 || got[0].RowIDs[0] != created[1].ID {
		t.Errorf("unexpected newest entry: %+v", got[0])
	}
	if got[1].Op != rows.OpUpdate || got[1].Field != rows.FieldValue {
		t.Errorf("unexpected update entry: %+v", got[1])
	}
	if got[2].Op != rows.OpLoad || len(got[2].RowIDs) != 2 || got[2].Count != 2 {
		t.Errorf("unexpected load entry: %+v", got[2])
	}
	if !got[2].Time.Equal(now) {
		t.Errorf("time = %v", got[2].Time)
	}
	if r := j.Recent(1); len(r) != 1 || r[0].Op != rows.OpDelete {
		t.Errorf("Recent(1) = %+v", r)
	}

	j2, err := Open(ctx, path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if j2.Len() != 3 {
		t.Errorf("reopened journal has %d entries", j2.Len())
	}
}

func TestJournalCompaction(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := Open(ctx, path, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := range 5 {
		j.OnChange(ctx, rows.Change{Op: rows.OpLoad, Len: i + 1})
	}
	j2, err := Open(ctx, path, 2)
	if err != nil {
		t.Fatal(err)
	}
	got := j2.Recent(0)
	if len(got) != 2 || got[0].Count != 5 || got[1].Count != 4 {
		t.Errorf("unexpected entries after compaction: %+v", got)
	}
	j3, err := Open(ctx, path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if j3.Len() != 2 {
		t.Errorf("compaction was not persisted: %d", j3.Len())
	}
}

func TestJournalEmpty(t *testing.T) {
	j, err := Open(t.Context(), filepath.Join(t.TempDir(), "j.jsonl"), 10)
	if err != nil {
		t.Fatal(err)
	}
	if got := j.Recent(5); got == nil || len(got) != 0 {
		t.Errorf("Recent on empty journal = %#v", got)
	}
}
