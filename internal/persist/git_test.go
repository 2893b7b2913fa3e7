package persist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/maruel/factsheet/internal/rows"
)

func newTestGit(t *testing.T) *Git {
	t.Helper()
	f, err := NewFile(filepath.Join(t.TempDir(), "snapshot.json"))
	if err != nil {
		t.Fatal(err)
	}
	g, err := NewGit(f, Author{Name: "test", Email: "test@localhost"})
	if err != nil {
		t.Fatalf("NewGit failed: %v", err)
	}
	return g
}

func TestGit(t *testing.T) {
	g := newTestGit(t)
	ctx := t.Context()

	revs, err := g.Revisions(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 0 {
		t.Fatalf("fresh repo has %d revisions", len(revs))
	}

	if err := g.Save(WithCommitMessage(ctx, "load 2 rows"), []byte("[1]")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := g.Save(ctx, []byte("[2]")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	// Same content: no new commit.
	if err := g.Save(ctx, []byte("[2]")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	revs, err = g.Revisions(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 2 {
		t.Fatalf("got %d revisions, want 2: %+v", len(revs), revs)
	}
	if revs[0].Message != "Update snapshot" || revs[1].Message != "load 2 rows" {
		t.Errorf("messages = %q, %q", revs[0].Message, revs[1].Message)
	}
	if revs[0].Author != "test" {
		t.Errorf("author = %q", revs[0].Author)
	}

	old, err := g.SnapshotAt(ctx, revs[1].Hash)
	if err != nil {
		t.Fatalf("SnapshotAt failed: %v", err)
	}
	if string(old) != "[1]" {
		t.Errorf("SnapshotAt = %q, want [1]", old)
	}
	cur, ok, err := g.LoadAtStartup(ctx)
	if err != nil || !ok || string(cur) != "[2]" {
		t.Errorf("LoadAtStartup = %q, %v, %v", cur, ok, err)
	}

	if n, err := g.Revisions(ctx, 1); err != nil || len(n) != 1 {
		t.Errorf("Revisions(1) = %d, %v", len(n), err)
	}
	if _, err := g.SnapshotAt(ctx, "0000000000000000000000000000000000000000"); err == nil {
		t.Error("expected error for unknown revision")
	}
}

func TestGitReopen(t *testing.T) {
	g := newTestGit(t)
	ctx := t.Context()
	if err := g.Save(ctx, []byte("[]")); err != nil {
		t.Fatal(err)
	}
	g2, err := NewGit(g.file, Author{Name: "other", Email: "other@localhost"})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	revs, err := g2.Revisions(ctx, 0)
	if err != nil || len(revs) != 1 {
		t.Errorf("Revisions = %d, %v", len(revs), err)
	}
}

// corruptIndex makes every following stage operation fail.
func corruptIndex(t *testing.T, g *Git) {
	t.Helper()
	index := filepath.Join(filepath.Dir(g.file.Path()), ".git", "index")
	if err := os.WriteFile(index, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestGitSaveFailureRestoresSnapshot(t *testing.T) {
	ctx := t.Context()
	t.Run("existing", func(t *testing.T) {
		g := newTestGit(t)
		if err := g.Save(ctx, []byte("[1]")); err != nil {
			t.Fatal(err)
		}
		corruptIndex(t, g)
		if err := g.Save(ctx, []byte("[2]")); err == nil {
			t.Fatal("expected Save to fail with a corrupt index")
		}
		got, ok, err := g.LoadAtStartup(ctx)
		if err != nil || !ok || string(got) != "[1]" {
			t.Errorf("LoadAtStartup = %q, %v, %v; want [1]", got, ok, err)
		}
	})
	t.Run("first", func(t *testing.T) {
		g := newTestGit(t)
		corruptIndex(t, g)
		if err := g.Save(ctx, []byte("[1]")); err == nil {
			t.Fatal("expected Save to fail with a corrupt index")
		}
		if got, ok, err := g.LoadAtStartup(ctx); err != nil || ok {
			t.Errorf("LoadAtStartup = %q, %v, %v; want no snapshot", got, ok, err)
		}
	})
}

func TestGitStoreUpdateIsAllOrNothing(t *testing.T) {
	ctx := t.Context()
	g := newTestGit(t)
	s, err := rows.Open(ctx, g)
	if err != nil {
		t.Fatal(err)
	}
	created, err := s.Load(ctx, []rows.Input{{Section: "Formulation", Key: "Drug", Value: "old", Confidence: 0.9}})
	if err != nil {
		t.Fatal(err)
	}
	corruptIndex(t, g)

	if err := s.Update(ctx, created[0].ID, rows.SetValue("new")); !errors.Is(err, rows.ErrPersist) {
		t.Fatalf("Update err = %v, want ErrPersist", err)
	}
	if got := s.Snapshot()[0].Value; got != "old" {
		t.Errorf("in-memory value = %q, want old", got)
	}

	f, err := NewFile(g.file.Path())
	if err != nil {
		t.Fatal(err)
	}
	reopened, err := rows.Open(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	if snap := reopened.Snapshot(); len(snap) != 1 || snap[0].Value != "old" {
		t.Errorf("reopened snapshot = %+v, want value old", snap)
	}
}
