package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestInit_CreatesLayout(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	for _, sub := range []string{".trak", ".trak/objects", ".trak/refs/heads"} {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(sub))); err != nil {
			t.Errorf("missing %s after init: %v", sub, err)
		}
	}

	head, err := r.ReadHead()
	if err != nil {
		t.Fatalf("ReadHead: %v", err)
	}
	if head.Branch != "main" {
		t.Errorf("initial HEAD branch = %q, want main", head.Branch)
	}

	// No commits yet.
	tip, err := r.HeadCommit()
	if err != nil {
		t.Fatalf("HeadCommit: %v", err)
	}
	if tip != "" {
		t.Errorf("HeadCommit before first commit = %q, want empty", tip)
	}
}

func TestInit_RefusesExistingRepo(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := Init(dir); err == nil {
		t.Fatal("second Init in the same directory should fail")
	}
}

func TestOpen_FindsRootFromSubdirectory(t *testing.T) {
	r := initRepo(t)

	sub := filepath.Join(r.RootDir, "nested", "deeper")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	opened, err := Open(sub)
	if err != nil {
		t.Fatalf("Open from subdirectory: %v", err)
	}
	if opened.RootDir != r.RootDir {
		t.Errorf("Open root = %q, want %q", opened.RootDir, r.RootDir)
	}
}

func TestOpen_OutsideRepository(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, ErrNotRepository) {
		t.Errorf("Open outside a repo = %v, want ErrNotRepository", err)
	}
}
