package persist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFile(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "nested", "snapshot.json")
	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}

	data, ok, err := f.LoadAtStartup(ctx)
	if err != nil || ok || data != nil {
		t.Fatalf("LoadAtStartup on missing file = %q, %v, %v", data, ok, err)
	}

	for _, want := range []string{"[]", `[{"id":"x"}]`, ""} {
		if err := f.Save(ctx, []byte(want)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		got, ok, err := f.LoadAtStartup(ctx)
		if err != nil || !ok {
			t.Fatalf("LoadAtStartup = %v, %v", ok, err)
		}
		if string(got) != want {
			t.Errorf("LoadAtStartup = %q, want %q", got, want)
		}
	}

	// Temporary files are cleaned up.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "snapshot.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contains %v", names)
	}
}

func TestFileReadError(t *testing.T) {
	dir := t.TempDir()
	// A directory where the snapshot file should be cannot be read.
	path := filepath.Join(dir, "snapshot.json")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := NewFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.LoadAtStartup(t.Context()); err == nil {
		t.Error("expected error")
	}
	if err := f.Save(t.Context(), []byte("[]")); err == nil {
		t.Error("expected error replacing a directory")
	}
}

func TestFileSaveFailureKeepsPrevious(t *testing.T) {
	ctx := t.Context()
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	f, err := NewFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Save(ctx, []byte("[1]")); err != nil {
		t.Fatal(err)
	}

	errRename := errors.New("rename failed")
	rename = func(string, string) error { return errRename }
	t.Cleanup(func() { rename = os.Rename })

	if err := f.Save(ctx, []byte("[2]")); !errors.Is(err, errRename) {
		t.Fatalf("Save err = %v, want %v", err, errRename)
	}
	got, ok, err := f.LoadAtStartup(ctx)
	if err != nil || !ok || string(got) != "[1]" {
		t.Errorf("LoadAtStartup = %q, %v, %v; want [1]", got, ok, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary file left behind: %d entries", len(entries))
	}
}
