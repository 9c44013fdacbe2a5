package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/trakvc/trak/pkg/object"
)

// Init creates a new trak repository at path. It creates the .trak/
// directory structure: HEAD, objects/, and refs/heads/. Returns an error
// if a .trak/ directory already exists.
func Init(path string) (*Repo, error) {
	trakDir := filepath.Join(path, ".trak")

	if _, err := os.Stat(trakDir); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", trakDir)
	}

	dirs := []string{
		filepath.Join(trakDir, "objects"),
		filepath.Join(trakDir, "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	// Write default HEAD. The main branch ref itself is created by the
	// first commit; until then the repository has a branch name but no tip.
	headPath := filepath.Join(trakDir, "HEAD")
	if err := os.WriteFile(headPath, []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}

	return &Repo{
		RootDir: path,
		TrakDir: trakDir,
		Store:   object.NewStore(trakDir),
	}, nil
}

// Open searches upward from path for a .trak/ directory and opens the
// repository. Returns ErrNotRepository if none is found.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		trakDir := filepath.Join(cur, ".trak")
		info, err := os.Stat(trakDir)
		if err == nil && info.IsDir() {
			return &Repo{
				RootDir: cur,
				TrakDir: trakDir,
				Store:   object.NewStore(trakDir),
			}, nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			// Reached filesystem root without finding .trak/.
			return nil, fmt.Errorf("open %s: %w", path, ErrNotRepository)
		}
		cur = parent
	}
}
