package repo

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
)

// FileStatus represents the state of a file in the working tree or index.
type FileStatus int

const (
	StatusClean     FileStatus = iota // file matches between compared areas
	StatusNew                         // in staging, not in HEAD snapshot
	StatusModified                    // in staging, different from HEAD
	StatusDeleted                     // removal staged, or file missing on disk
	StatusUntracked                   // in working dir, not tracked
	StatusDirty                       // working copy differs from staged/committed content
	StatusConflict                    // unresolved merge conflict in the index
)

// StatusEntry records the status of a single file.
type StatusEntry struct {
	Path        string     // repo-relative path
	IndexStatus FileStatus // staging vs HEAD comparison
	WorkStatus  FileStatus // working tree vs staging comparison
}

// Status computes the working tree status for the repository.
//
// Algorithm:
//  1. Read the staging index and the HEAD snapshot.
//  2. Walk the working directory (skipping .trak/).
//  3. Compare staging entries against HEAD (index column).
//  4. Compare working-tree files against staging/HEAD (work column).
//  5. Return a sorted list of non-clean entries plus clean tracked files.
func (r *Repo) Status() ([]StatusEntry, error) {
	stg, err := r.ReadStaging()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	headSnap, err := r.headSnapshot()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	workFiles, err := r.walkWorkTree()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	cache := r.loadStatusCache()

	// Union of every path the repository knows about.
	paths := make(map[string]bool)
	for p := range headSnap {
		paths[p] = true
	}
	for p := range stg.Entries {
		paths[p] = true
	}
	for p := range stg.Removed {
		paths[p] = true
	}
	for p := range workFiles {
		paths[p] = true
	}

	var entries []StatusEntry
	for path := range paths {
		e := StatusEntry{Path: path}

		stagedEntry, staged := stg.Entries[path]
		headHash, tracked := headSnap[path]
		_, onDisk := workFiles[path]

		// Index column: staging vs HEAD.
		switch {
		case staged && stagedEntry.Conflict:
			e.IndexStatus = StatusConflict
		case stg.Removed[path]:
			e.IndexStatus = StatusDeleted
		case staged && !tracked:
			e.IndexStatus = StatusNew
		case staged && stagedEntry.BlobHash != headHash:
			e.IndexStatus = StatusModified
		default:
			e.IndexStatus = StatusClean
		}

		// Work column: working tree vs staging (falling back to HEAD).
		wantHash := headHash
		if staged {
			wantHash = stagedEntry.BlobHash
		}
		switch {
		case !onDisk && (staged || (tracked && !stg.Removed[path])):
			e.WorkStatus = StatusDeleted
		case onDisk && !staged && !tracked:
			e.WorkStatus = StatusUntracked
		case onDisk && wantHash != "":
			workHash, err := cache.blobHash(r, path)
			if err != nil {
				return nil, fmt.Errorf("status: hash %q: %w", path, err)
			}
			if workHash != wantHash {
				e.WorkStatus = StatusDirty
			}
		}

		entries = append(entries, e)
	}

	cache.save(r)

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// walkWorkTree collects repo-relative paths of all regular files in the
// working tree, skipping the .trak directory.
func (r *Repo) walkWorkTree() (map[string]bool, error) {
	files := make(map[string]bool)
	err := filepath.WalkDir(r.RootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if d.Name() == ".trak" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(r.RootDir, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// IsClean reports whether the repository has no staged or unstaged changes.
func (r *Repo) IsClean() (bool, error) {
	entries, err := r.Status()
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.WorkStatus == StatusUntracked {
			continue
		}
		if e.IndexStatus != StatusClean || e.WorkStatus != StatusClean {
			return false, nil
		}
	}
	return true, nil
}
