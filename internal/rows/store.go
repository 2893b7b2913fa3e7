// Implements the write-through row store.

package rows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/maruel/ksid"
)

// Persister is durable storage for the store's full JSON snapshot.
type Persister interface {
	// Save replaces the persisted snapshot.
	Save(ctx context.Context, snapshot []byte) error
	// LoadAtStartup returns the persisted snapshot. ok is false when none exists.
	LoadAtStartup(ctx context.Context) (data []byte, ok bool, err error)
}

// Op identifies the kind of a committed mutation.
type Op string

const (
	// OpLoad appended a batch.
	OpLoad Op = "load"
	// OpReplace replaced the whole collection with a batch.
	OpReplace Op = "replace"
	// OpUpdate changed one field of one row.
	OpUpdate Op = "update"
	// OpDelete removed one row.
	OpDelete Op = "delete"
)

// Change describes a committed mutation.
type Change struct {
	Op    Op
	IDs   []ksid.ID // Rows created, updated or deleted.
	Field Field     // Set for OpUpdate.
	Len   int       // Store size after the mutation.
}

// Observer is notified after each committed mutation.
//
// OnChange is called with the store lock held, in commit order. It must not
// call back into the Store.
type Observer interface {
	OnChange(ctx context.Context, c Change)
}

// Option configures a Store.
type Option func(*Store)

// WithObserver registers o before the snapshot is loaded.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observers = append(s.observers, o)
	}
}

// Store is the authoritative ordered collection of rows.
//
// It is safe for concurrent use; mutations are serialized and each one is
// persisted before it becomes visible.
type Store struct {
	persister Persister

	mu        sync.RWMutex
	observers []Observer
	rows      []Row
}

// Open creates a Store and restores the persisted snapshot, if any.
//
// A malformed snapshot is logged and ignored, leaving the store empty. Only a
// failure to read the snapshot is returned.
func Open(ctx context.Context, p Persister, opts ...Option) (*Store, error) {
	if p == nil {
		return nil, errors.New("persister is required")
	}
	s := &Store{persister: p, rows: []Row{}}
	for _, opt := range opts {
		opt(s)
	}
	data, ok, err := p.LoadAtStartup(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if !ok {
		slog.DebugContext(ctx, "No snapshot found, starting empty")
		return s, nil
	}
	rows, err := FromJSON(string(data))
	if err != nil {
		slog.WarnContext(ctx, "Ignoring malformed snapshot", "err", err)
		return s, nil
	}
	s.rows = rows
	slog.InfoContext(ctx, "Restored snapshot", "rows", len(rows))
	return s, nil
}

// Len returns the number of rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Snapshot returns a deep copy of all rows in store order.
func (s *Store) Snapshot() []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Row, len(s.rows))
	for i := range s.rows {
		out[i] = s.rows[i].Clone()
	}
	return out
}

// Get returns a copy of the row with the given identity.
func (s *Store) Get(id ksid.ID) (Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return Row{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.rows[i].Clone(), nil
}

// Load appends a batch after the existing rows, preserving input order.
//
// Each row receives a fresh identity. The created rows are returned. An empty
// batch is a no-op.
func (s *Store) Load(ctx context.Context, batch []Input) ([]Row, error) {
	return s.ingest(ctx, batch, OpLoad)
}

// Replace discards all rows and loads batch in their place.
func (s *Store) Replace(ctx context.Context, batch []Input) ([]Row, error) {
	return s.ingest(ctx, batch, OpReplace)
}

func (s *Store) ingest(ctx context.Context, batch []Input, op Op) ([]Row, error) {
	for i := range batch {
		if err := batch[i].Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(batch) == 0 && op == OpLoad {
		return []Row{}, nil
	}
	var next []Row
	if op == OpReplace {
		next = make([]Row, 0, len(batch))
	} else {
		next = make([]Row, 0, len(s.rows)+len(batch))
		next = append(next, s.rows...)
	}
	taken := make(map[ksid.ID]struct{}, len(s.rows))
	for i := range s.rows {
		taken[s.rows[i].ID] = struct{}{}
	}
	created := make([]Row, 0, len(batch))
	ids := make([]ksid.ID, 0, len(batch))
	for i := range batch {
		id := newUniqueID(taken)
		r := batch[i].toRow(id)
		next = append(next, r)
		created = append(created, r.Clone())
		ids = append(ids, id)
	}
	if err := s.commitLocked(ctx, next, Change{Op: op, IDs: ids}); err != nil {
		return nil, err
	}
	return created, nil
}

// newUniqueID returns an identity absent from taken and records it there.
//
// ksid.NewID is monotonic within a process, so identities of deleted rows are
// never produced again. The check covers snapshots written under a clock that
// ran ahead of this one.
func newUniqueID(taken map[ksid.ID]struct{}) ksid.ID {
	for {
		id := ksid.NewID()
		if _, ok := taken[id]; !ok {
			taken[id] = struct{}{}
			return id
		}
	}
}

// Update applies e to the row with the given identity.
func (s *Store) Update(ctx context.Context, id ksid.ID, e Edit) error {
	if e == nil {
		return fmt.Errorf("%w: no edit", ErrInvalidEdit)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	row := s.rows[i]
	if err := e.apply(&row); err != nil {
		return err
	}
	next := slices.Clone(s.rows)
	next[i] = row
	return s.commitLocked(ctx, next, Change{Op: OpUpdate, IDs: []ksid.ID{id}, Field: e.Field()})
}

// Delete removes the row with the given identity.
//
// Deleting an identity twice returns ErrNotFound the second time.
func (s *Store) Delete(ctx context.Context, id ksid.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := slices.Delete(slices.Clone(s.rows), i, i+1)
	return s.commitLocked(ctx, next, Change{Op: OpDelete, IDs: []ksid.ID{id}})
}

func (s *Store) indexLocked(id ksid.ID) int {
	return slices.IndexFunc(s.rows, func(r Row) bool { return r.ID == id })
}

// commitLocked persists next and only then makes it the current collection.
func (s *Store) commitLocked(ctx context.Context, next []Row, c Change) error {
	text, err := ToJSON(next)
	if err != nil {
		return err
	}
	if err := s.persister.Save(ctx, []byte(text)); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	s.rows = next
	c.Len = len(next)
	for _, o := range s.observers {
		o.OnChange(ctx, c)
	}
	return nil
}
