package repo

import (
	"fmt"
	"maps"
	"time"

	"github.com/trakvc/trak/pkg/object"
)

// CommitSigner signs canonical commit payload bytes and returns an encoded
// signature string to be persisted in CommitObj.Signature.
type CommitSigner func(payload []byte) (string, error)

// LogEntry pairs a commit with the hash it is stored under.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// Commit creates a new commit from the current staging area.
//
// The next snapshot is the parent commit's snapshot overlaid with the
// staged entries, minus recorded removals; tracked files that were not
// re-staged persist unchanged. A commit whose snapshot would be identical
// to its parent's is rejected with ErrNothingStaged. If a conflicted merge
// is pending (.trak/MERGE_HEAD exists), the commit records two parents and
// concludes the merge.
//
// All new objects are written to the store before any ref moves, so a
// failure at any step leaves the previous state fully intact.
func (r *Repo) Commit(message, author string) (object.Hash, error) {
	return r.CommitWithSigner(message, author, nil)
}

// CommitWithSigner creates a new commit and signs it when signer is provided.
func (r *Repo) CommitWithSigner(message, author string, signer CommitSigner) (object.Hash, error) {
	stg, err := r.ReadStaging()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	if stg.HasConflicts() {
		return "", fmt.Errorf("commit: %w", ErrUnresolved)
	}

	parentHash, err := r.HeadCommit()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	snapshot, err := r.buildSnapshot(stg, parentHash)
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	// No-op commit guard: reject a snapshot identical to the parent's.
	if parentHash != "" {
		parent, err := r.Store.ReadCommit(parentHash)
		if err != nil {
			return "", fmt.Errorf("commit: read parent: %w", err)
		}
		if maps.Equal(snapshot, parent.Snapshot) {
			return "", fmt.Errorf("commit: %w", ErrNothingStaged)
		}
	} else if len(snapshot) == 0 {
		return "", fmt.Errorf("commit: %w", ErrNothingStaged)
	}

	var parents []object.Hash
	if parentHash != "" {
		parents = append(parents, parentHash)
	}
	mergeHead, err := r.readMergeHead()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	if mergeHead != "" {
		if parentHash == "" {
			return "", fmt.Errorf("commit: pending merge with no current commit")
		}
		parents = append(parents, mergeHead)
	}

	commitObj := &object.CommitObj{
		Snapshot:  snapshot,
		Parents:   parents,
		Author:    author,
		Timestamp: time.Now().Unix(),
		Message:   message,
	}
	if signer != nil {
		payload := object.CommitSigningPayload(commitObj)
		signature, err := signer(payload)
		if err != nil {
			return "", fmt.Errorf("commit: sign commit: %w", err)
		}
		commitObj.Signature = signature
	}

	commitHash, err := r.Store.WriteCommit(commitObj)
	if err != nil {
		return "", fmt.Errorf("commit: write commit: %w", err)
	}

	if err := r.advanceHead(commitHash, parentHash); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	// Objects and refs are in place; clear transient state last.
	if err := r.WriteStaging(&Staging{Entries: make(map[string]*StagingEntry)}); err != nil {
		return "", fmt.Errorf("commit: clear staging: %w", err)
	}
	if err := r.clearMergeHead(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	return commitHash, nil
}

// buildSnapshot overlays the staging area onto the parent snapshot.
func (r *Repo) buildSnapshot(stg *Staging, parentHash object.Hash) (map[string]object.Hash, error) {
	snapshot := make(map[string]object.Hash)
	if parentHash != "" {
		parent, err := r.Store.ReadCommit(parentHash)
		if err != nil {
			return nil, fmt.Errorf("read parent %s: %w", parentHash, err)
		}
		maps.Copy(snapshot, parent.Snapshot)
	}
	for path := range stg.Removed {
		delete(snapshot, path)
	}
	for path, e := range stg.Entries {
		// An empty blob hash records a current-side deletion from a
		// conflicted merge; it behaves like a removal.
		if e.BlobHash == "" {
			delete(snapshot, path)
			continue
		}
		snapshot[path] = e.BlobHash
	}
	return snapshot, nil
}

// advanceHead moves the attached branch (or detached HEAD) from the old
// commit to the new one. Branch updates use compare-and-swap so a stale
// tip read by a racing process cannot be silently overwritten.
func (r *Repo) advanceHead(newHash, oldHash object.Hash) error {
	head, err := r.ReadHead()
	if err != nil {
		return err
	}
	if head.Attached() {
		if err := r.UpdateBranchRef(head.Branch, newHash, oldHash); err != nil {
			return fmt.Errorf("advance branch %q: %w", head.Branch, err)
		}
		return nil
	}
	return r.WriteHead(Head{Detached: newHash})
}

// Log walks the commit history starting from the given hash, following
// first-parent links, returning up to limit commits in reverse-chronological
// order (newest first). A limit <= 0 means no limit. The walk is finite:
// parent links always point backward toward the single root.
func (r *Repo) Log(start object.Hash, limit int) ([]LogEntry, error) {
	var entries []LogEntry
	current := start

	for current != "" {
		if limit > 0 && len(entries) >= limit {
			break
		}
		c, err := r.Store.ReadCommit(current)
		if err != nil {
			// A parent link pointing at a missing object is store corruption;
			// never silently truncate history.
			return nil, fmt.Errorf("log: read commit %s: %w", current, err)
		}
		entries = append(entries, LogEntry{Hash: current, Commit: c})

		// Merge commits contribute their first parent to linear history.
		if len(c.Parents) == 0 {
			break
		}
		current = c.Parents[0]
	}

	return entries, nil
}
