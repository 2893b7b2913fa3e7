package rows

import (
	"context"
	"errors"
	"testing"
)

// memPersister keeps the last saved snapshot in memory.
type memPersister struct {
	data    []byte
	ok      bool
	saves   int
	saveErr error
	loadErr error
}

func (m *memPersister) Save(_ context.Context, snapshot []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = append([]byte(nil), snapshot...)
	m.ok = true
	m.saves++
	return nil
}

func (m *memPersister) LoadAtStartup(context.Context) ([]byte, bool, error) {
	return m.data, m.ok, m.loadErr
}

var errDiskFull = errors.New("disk full")

func sampleInputs() []Input {
	return []Input{
		{Section: "Nanocarrier", Key: "Type", Value: "WPI-CHI-HA nanoparticles", Confidence: 0.95, SourceSpan: Ptr("p. 3, Fig. 1")},
		{Section: "Formulation", Key: "Drug", Value: "Curcumin", Confidence: 0.9},
		{Section: "Characterization", Key: "Particle size", Value: "182 nm", Confidence: 0.88, SourceSpan: Ptr("Table 2")},
		{Section: "Formulation", Key: "Ratio", Value: `WPI:CHI "1:1"`, Confidence: 0.7, SourceSpan: Ptr("")},
	}
}

func newTestStore(t *testing.T) (*Store, *memPersister) {
	t.Helper()
	p := &memPersister{}
	s, err := Open(t.Context(), p)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s, p
}

type recorder struct {
	changes []Change
}

func (r *recorder) OnChange(_ context.Context, c Change) {
	r.changes = append(r.changes, c)
}
