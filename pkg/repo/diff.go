package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/trakvc/trak/pkg/diff"
	"github.com/trakvc/trak/pkg/object"
)

// DiffFile computes the line-level edit script for a path between its last
// committed content and its current working-tree content. Digest equality
// short-circuits the diff: identical blobs produce an empty script without
// running the line algorithm. The script is line-granular, so a change
// affecting only the final newline yields an all-equal script even though
// the digests differ.
func (r *Repo) DiffFile(path string) ([]diff.Op, error) {
	relPath, err := r.repoRelPath(path)
	if err != nil {
		return nil, fmt.Errorf("diff: resolve path %q: %w", path, err)
	}

	snapshot, err := r.headSnapshot()
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	committedHash, tracked := snapshot[relPath]
	if !tracked {
		return nil, fmt.Errorf("diff %q: no committed version: %w", relPath, ErrFileNotFound)
	}

	absPath := filepath.Join(r.RootDir, filepath.FromSlash(relPath))
	current, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("diff %q: %w", relPath, ErrFileNotFound)
		}
		return nil, fmt.Errorf("diff: read %q: %w", relPath, err)
	}

	if object.HashObject(object.TypeBlob, current) == committedHash {
		return nil, nil
	}

	blob, err := r.Store.ReadBlob(committedHash)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	return diff.Lines(blob.Data, current), nil
}
