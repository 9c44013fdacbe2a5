package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/trakvc/trak/pkg/object"
)

// StagingEntry records the staged state of a single file.
type StagingEntry struct {
	Path     string      `json:"path"`
	BlobHash object.Hash `json:"blob_hash"`
	ModTime  int64       `json:"mod_time"`
	Size     int64       `json:"size"`

	// Conflict marks an entry produced by a conflicted merge. The blob holds
	// the current-side content; re-staging the path after manual resolution
	// clears the flag. Commit refuses while any entry is still conflicted.
	Conflict       bool        `json:"conflict,omitempty"`
	BaseBlobHash   object.Hash `json:"base_blob_hash,omitempty"`
	OursBlobHash   object.Hash `json:"ours_blob_hash,omitempty"`
	TheirsBlobHash object.Hash `json:"theirs_blob_hash,omitempty"`
}

// Staging holds the full staging area (index) for a trak repository.
// Entries are paths staged for the next commit; Removed records deletion
// intents for paths tracked by HEAD. The next snapshot is the parent
// snapshot overlaid with Entries minus Removed, so tracked files that were
// not re-staged persist automatically.
type Staging struct {
	Entries map[string]*StagingEntry `json:"entries"`
	Removed map[string]bool          `json:"removed,omitempty"`
}

// HasConflicts reports whether any entry is still marked conflicted.
func (s *Staging) HasConflicts() bool {
	for _, e := range s.Entries {
		if e.Conflict {
			return true
		}
	}
	return false
}

// Empty reports whether the staging area carries no pending change.
func (s *Staging) Empty() bool {
	return len(s.Entries) == 0 && len(s.Removed) == 0
}

// indexPath returns the filesystem path to the staging index file.
func (r *Repo) indexPath() string {
	return filepath.Join(r.TrakDir, "index")
}

// ReadStaging loads the staging area from .trak/index. If the file does
// not exist, an empty Staging is returned (no error).
func (r *Repo) ReadStaging() (*Staging, error) {
	data, err := os.ReadFile(r.indexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Staging{Entries: make(map[string]*StagingEntry)}, nil
		}
		return nil, fmt.Errorf("read staging: %w", err)
	}

	var stg Staging
	if err := json.Unmarshal(data, &stg); err != nil {
		return nil, fmt.Errorf("read staging: unmarshal: %w", err)
	}
	if stg.Entries == nil {
		stg.Entries = make(map[string]*StagingEntry)
	}
	return &stg, nil
}

// WriteStaging atomically writes the staging area to .trak/index.
func (r *Repo) WriteStaging(s *Staging) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("write staging: marshal: %w", err)
	}

	// Atomic write via temp file + rename.
	tmp, err := os.CreateTemp(r.TrakDir, ".index-tmp-*")
	if err != nil {
		return fmt.Errorf("write staging: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write staging: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write staging: close: %w", err)
	}

	if err := os.Rename(tmpName, r.indexPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write staging: rename: %w", err)
	}
	return nil
}

// Add stages the given file paths. Each path is resolved relative to the
// repo root, its current content is stored as a blob (idempotent for
// unchanged content), and the staging entry is created or updated. Staging
// a path cancels any pending removal and clears a conflict mark.
func (r *Repo) Add(paths []string) error {
	stg, err := r.ReadStaging()
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}

	for _, p := range paths {
		relPath, err := r.repoRelPath(p)
		if err != nil {
			return fmt.Errorf("add: resolve path %q: %w", p, err)
		}

		absPath := filepath.Join(r.RootDir, filepath.FromSlash(relPath))
		content, err := os.ReadFile(absPath)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("add %q: %w", relPath, ErrFileNotFound)
			}
			return fmt.Errorf("add: read %q: %w", relPath, err)
		}

		info, err := os.Stat(absPath)
		if err != nil {
			return fmt.Errorf("add: stat %q: %w", relPath, err)
		}
		if info.IsDir() {
			return fmt.Errorf("add %q: directories are not tracked", relPath)
		}

		blobHash, err := r.Store.WriteBlob(&object.Blob{Data: content})
		if err != nil {
			return fmt.Errorf("add: write blob %q: %w", relPath, err)
		}

		stg.Entries[relPath] = &StagingEntry{
			Path:     relPath,
			BlobHash: blobHash,
			ModTime:  info.ModTime().UnixNano(),
			Size:     info.Size(),
		}
		delete(stg.Removed, relPath)
	}

	if err := r.WriteStaging(stg); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	return nil
}

// Remove unstages a path. If the path is not staged but is tracked by the
// current commit, a removal intent is recorded instead so the next commit
// drops the path from its snapshot. Returns ErrNotStaged when the path is
// neither staged nor tracked.
func (r *Repo) Remove(path string) error {
	relPath, err := r.repoRelPath(path)
	if err != nil {
		return fmt.Errorf("remove: resolve path %q: %w", path, err)
	}

	stg, err := r.ReadStaging()
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	if _, staged := stg.Entries[relPath]; staged {
		delete(stg.Entries, relPath)
		if err := r.WriteStaging(stg); err != nil {
			return fmt.Errorf("remove: %w", err)
		}
		return nil
	}

	snapshot, err := r.headSnapshot()
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	if _, tracked := snapshot[relPath]; tracked {
		if stg.Removed == nil {
			stg.Removed = make(map[string]bool)
		}
		stg.Removed[relPath] = true
		if err := r.WriteStaging(stg); err != nil {
			return fmt.Errorf("remove: %w", err)
		}
		return nil
	}

	return fmt.Errorf("remove %q: %w", relPath, ErrNotStaged)
}

// headSnapshot returns the snapshot of the current HEAD commit, or an empty
// map when no commit exists yet.
func (r *Repo) headSnapshot() (map[string]object.Hash, error) {
	headHash, err := r.HeadCommit()
	if err != nil {
		return nil, err
	}
	if headHash == "" {
		return map[string]object.Hash{}, nil
	}
	c, err := r.Store.ReadCommit(headHash)
	if err != nil {
		return nil, err
	}
	return c.Snapshot, nil
}

// repoRelPath converts a path (absolute, or relative to CWD) into a
// slash-separated path relative to the repository root. A path that does
// not resolve inside the repo root is assumed to already be repo-relative.
func (r *Repo) repoRelPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(r.RootDir, p)
		if err != nil {
			return "", fmt.Errorf("cannot make %q relative to %q: %w", p, r.RootDir, err)
		}
		return filepath.ToSlash(rel), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}

	abs := filepath.Join(cwd, p)
	rel, err := filepath.Rel(r.RootDir, abs)
	if err != nil {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}

	// If the relative path escapes the root, treat p as repo-relative.
	if len(rel) >= 2 && rel[:2] == ".." {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}

	return filepath.ToSlash(rel), nil
}
