package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/trakvc/trak/pkg/object"
)

func initRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return r
}

func writeWorkFile(t *testing.T, r *Repo, relPath, content string) {
	t.Helper()
	absPath := filepath.Join(r.RootDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", relPath, err)
	}
	if err := os.WriteFile(absPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", relPath, err)
	}
}

func readWorkFile(t *testing.T, r *Repo, relPath string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(r.RootDir, filepath.FromSlash(relPath)))
	if err != nil {
		t.Fatalf("read %s: %v", relPath, err)
	}
	return string(data)
}

func stageFile(t *testing.T, r *Repo, relPath, content string) {
	t.Helper()
	writeWorkFile(t, r, relPath, content)
	if err := r.Add([]string{relPath}); err != nil {
		t.Fatalf("Add(%s): %v", relPath, err)
	}
}

func commitAll(t *testing.T, r *Repo, message string) object.Hash {
	t.Helper()
	h, err := r.Commit(message, "tester")
	if err != nil {
		t.Fatalf("Commit(%q): %v", message, err)
	}
	return h
}

// initRepoWithFile creates a repo with one committed file a.txt.
func initRepoWithFile(t *testing.T, content string) *Repo {
	t.Helper()
	r := initRepo(t)
	stageFile(t, r, "a.txt", content)
	commitAll(t, r, "initial")
	return r
}

func removeWorkFile(r *Repo, relPath string) error {
	return os.Remove(filepath.Join(r.RootDir, filepath.FromSlash(relPath)))
}

func workFileExists(r *Repo, relPath string) bool {
	_, err := os.Stat(filepath.Join(r.RootDir, filepath.FromSlash(relPath)))
	return err == nil
}
