package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/trakvc/trak/pkg/object"
)

// CheckoutBranch switches the working tree to the tip of the named branch,
// or to a raw commit (detached HEAD) when target parses as a commit id
// prefix instead of a branch name.
//
// Algorithm:
//  1. Refuse if the working tree has uncommitted changes (unless force).
//  2. Resolve target: branch name first, then commit id prefix.
//  3. Materialize the target snapshot over the working tree.
//  4. Reset the staging area.
//  5. Update HEAD (symbolic ref for a branch, raw hash for detached).
func (r *Repo) CheckoutBranch(target string, force bool) error {
	if !force {
		if err := r.ensureClean(); err != nil {
			return fmt.Errorf("checkout: %w", err)
		}
	}

	var newHead Head
	targetHash, err := r.ResolveBranch(target)
	if err == nil {
		newHead = Head{Branch: target}
	} else {
		resolved, prefixErr := r.Store.ResolvePrefix(target)
		if prefixErr != nil {
			return fmt.Errorf("checkout %q: %w", target, ErrBranchNotFound)
		}
		targetHash = resolved
		newHead = Head{Detached: resolved}
	}

	commit, err := r.Store.ReadCommit(targetHash)
	if err != nil {
		return fmt.Errorf("checkout: read commit %s: %w", targetHash, err)
	}

	if err := r.materializeSnapshot(commit.Snapshot); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	if err := r.WriteStaging(&Staging{Entries: make(map[string]*StagingEntry)}); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	if err := r.WriteHead(newHead); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	return nil
}

// RestoreFile overwrites the working-tree copy of path with its content in
// the current HEAD commit.
func (r *Repo) RestoreFile(path string) error {
	headHash, err := r.HeadCommit()
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if headHash == "" {
		return fmt.Errorf("restore %q: no commits yet", path)
	}
	return r.RestoreFileAt(string(headHash), path)
}

// RestoreFileAt overwrites the working-tree copy of path with its content
// in the commit identified by an id or unique id prefix. HEAD is not moved.
func (r *Repo) RestoreFileAt(commitID, path string) error {
	relPath, err := r.repoRelPath(path)
	if err != nil {
		return fmt.Errorf("restore: resolve path %q: %w", path, err)
	}

	data, err := r.FileAt(commitID, relPath)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	absPath := filepath.Join(r.RootDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return fmt.Errorf("restore: mkdir for %q: %w", relPath, err)
	}
	if err := os.WriteFile(absPath, data, 0o644); err != nil {
		return fmt.Errorf("restore: write %q: %w", relPath, err)
	}
	return nil
}

// FileAt returns the content of a repo-relative path as recorded in the
// commit identified by an id or unique id prefix.
func (r *Repo) FileAt(commitID, relPath string) ([]byte, error) {
	commitHash, err := r.Store.ResolvePrefix(commitID)
	if err != nil {
		return nil, fmt.Errorf("commit %q: %w", commitID, err)
	}
	commit, err := r.Store.ReadCommit(commitHash)
	if err != nil {
		return nil, err
	}

	blobHash, ok := commit.Snapshot[relPath]
	if !ok {
		return nil, fmt.Errorf("%q in commit %s: %w", relPath, commitHash.Short(), ErrFileNotFound)
	}
	blob, err := r.Store.ReadBlob(blobHash)
	if err != nil {
		return nil, err
	}
	return blob.Data, nil
}

// materializeSnapshot replaces tracked working-tree content with the given
// snapshot: currently tracked files are removed, then every snapshot entry
// is written out.
func (r *Repo) materializeSnapshot(snapshot map[string]object.Hash) error {
	for path := range r.trackedFiles() {
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(path))
		if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %q: %w", path, err)
		}
		r.removeEmptyParents(filepath.Dir(absPath))
	}

	for path, blobHash := range snapshot {
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return fmt.Errorf("mkdir for %q: %w", path, err)
		}
		blob, err := r.Store.ReadBlob(blobHash)
		if err != nil {
			return fmt.Errorf("read blob for %q: %w", path, err)
		}
		if err := os.WriteFile(absPath, blob.Data, 0o644); err != nil {
			return fmt.Errorf("write %q: %w", path, err)
		}
	}
	return nil
}

// ensureClean checks that the working tree has no uncommitted changes.
func (r *Repo) ensureClean() error {
	entries, err := r.Status()
	if err != nil {
		return fmt.Errorf("check status: %w", err)
	}
	for _, e := range entries {
		// Untracked files survive a checkout untouched.
		if e.WorkStatus == StatusUntracked {
			continue
		}
		if e.IndexStatus != StatusClean || e.WorkStatus != StatusClean {
			return fmt.Errorf("%w (file %q)", ErrDirtyWorkTree, e.Path)
		}
	}
	return nil
}

// trackedFiles returns the set of paths tracked by HEAD or the staging area.
func (r *Repo) trackedFiles() map[string]bool {
	files := make(map[string]bool)

	if snapshot, err := r.headSnapshot(); err == nil {
		for path := range snapshot {
			files[path] = true
		}
	}
	if stg, err := r.ReadStaging(); err == nil {
		for path := range stg.Entries {
			files[path] = true
		}
	}
	return files
}

// removeEmptyParents removes empty directories up to (but not including)
// the repository root.
func (r *Repo) removeEmptyParents(dir string) {
	for {
		if dir == r.RootDir || !strings.HasPrefix(dir, r.RootDir) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		os.Remove(dir)
		dir = filepath.Dir(dir)
	}
}
