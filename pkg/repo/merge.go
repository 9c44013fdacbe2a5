package repo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/trakvc/trak/pkg/object"
)

// MergeState is the terminal state of a merge.
type MergeState int

const (
	MergeClean      MergeState = iota // merged and committed
	MergeConflicted                   // conflict artifacts written, no commit
	MergeUpToDate                     // source is already reachable from current
)

// FileMergeReport records the merge outcome for a single file.
type FileMergeReport struct {
	Path     string
	Status   string // "clean", "conflict", "added", "deleted"
	Artifact string // repo-relative conflict artifact path, if any
}

// MergeReport is the overall result of a repository-level merge.
type MergeReport struct {
	State       MergeState
	Files       []FileMergeReport
	Conflicts   int
	MergeCommit object.Hash // set when State is MergeClean
}

// ConflictArtifactSuffix is appended to a path to name its conflict artifact.
const ConflictArtifactSuffix = ".conflict"

// Merge merges the named branch into the current HEAD using a three-way
// merge over the file sets of the common ancestor, the current tip, and the
// source tip.
//
// Per-file outcomes follow blob identity: equal digests mean unchanged, so
// line diffs are never computed for files only one side touched. When both
// sides changed a file to different content, the working copy keeps the
// current-side content and a sibling "<path>.conflict" artifact is written
// holding both versions, clearly delimited.
//
// A merge with conflicts terminates in MergeConflicted: no commit is
// created, the source tip is remembered in .trak/MERGE_HEAD, and the next
// commit (after manual resolution and re-staging) records both parents.
// A conflict-free merge terminates in MergeClean with an immediate merge
// commit whose parents are [currentTip, sourceTip].
func (r *Repo) Merge(branchName, author string) (*MergeReport, error) {
	if pending, err := r.readMergeHead(); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	} else if pending != "" {
		return nil, fmt.Errorf("merge: previous merge not concluded (commit or resolve first)")
	}
	if err := r.ensureClean(); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	currentTip, err := r.HeadCommit()
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	if currentTip == "" {
		return nil, fmt.Errorf("merge: no commits yet")
	}
	sourceTip, err := r.ResolveBranch(branchName)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	baseHash, err := r.FindMergeBase(currentTip, sourceTip)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	if baseHash == sourceTip {
		return &MergeReport{State: MergeUpToDate}, nil
	}

	baseSnap, err := r.commitSnapshot(baseHash)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	oursSnap, err := r.commitSnapshot(currentTip)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	theirsSnap, err := r.commitSnapshot(sourceTip)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	plan, err := r.classifyPaths(branchName, baseSnap, oursSnap, theirsSnap)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	if err := r.applyMergePlan(plan); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	report := &MergeReport{
		Files:     plan.files,
		Conflicts: len(plan.conflicts),
	}

	if len(plan.conflicts) > 0 {
		report.State = MergeConflicted
		if err := r.stageConflictState(plan); err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
		if err := r.writeMergeHead(sourceTip); err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
		return report, nil
	}

	report.State = MergeClean
	if err := r.stageMergePlan(plan); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	mergeHash, err := r.commitMerge(
		fmt.Sprintf("Merge branch '%s'", branchName),
		author,
		currentTip,
		sourceTip,
	)
	if err != nil {
		return nil, fmt.Errorf("merge: commit: %w", err)
	}
	report.MergeCommit = mergeHash
	return report, nil
}

// mergePlan is the decided fate of every path before anything touches the
// working tree. Objects for conflict artifacts are not stored; artifacts
// are plain working-tree files.
type mergePlan struct {
	files     []FileMergeReport
	takes     []mergeTake     // paths whose content comes from the source side
	deletes   []string        // paths to delete from tree and snapshot
	conflicts []mergeConflict // paths needing manual resolution
}

type mergeTake struct {
	path     string
	blobHash object.Hash
}

type mergeConflict struct {
	path       string
	baseHash   object.Hash // empty when absent in ancestor
	oursHash   object.Hash // empty when deleted on the current side
	theirsHash object.Hash // empty when deleted on the source side
	artifact   []byte
}

// classifyPaths walks the union of paths across the three snapshots and
// assigns each one an outcome per the three-way rules.
func (r *Repo) classifyPaths(branchName string, base, ours, theirs map[string]object.Hash) (*mergePlan, error) {
	paths := make(map[string]bool)
	for p := range base {
		paths[p] = true
	}
	for p := range ours {
		paths[p] = true
	}
	for p := range theirs {
		paths[p] = true
	}
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	plan := &mergePlan{}
	for _, path := range sorted {
		baseHash, inBase := base[path]
		oursHash, inOurs := ours[path]
		theirsHash, inTheirs := theirs[path]

		switch {
		case inOurs && inTheirs && oursHash == theirsHash:
			// Identical on both sides (whether or not base had it).
			continue

		case inBase && inOurs && inTheirs:
			switch {
			case oursHash == baseHash:
				// Only source changed: take source's blob.
				plan.takes = append(plan.takes, mergeTake{path: path, blobHash: theirsHash})
				plan.files = append(plan.files, FileMergeReport{Path: path, Status: "clean"})
			case theirsHash == baseHash:
				// Only current changed: keep current's blob, nothing to do.
				continue
			default:
				// Changed in both to different content: conflict.
				if err := r.addConflict(plan, branchName, path, baseHash, oursHash, theirsHash); err != nil {
					return nil, err
				}
			}

		case !inBase && inOurs && inTheirs:
			// Added on both sides with different content: conflict with an
			// empty ancestor side.
			if err := r.addConflict(plan, branchName, path, "", oursHash, theirsHash); err != nil {
				return nil, err
			}

		case !inBase && !inOurs && inTheirs:
			// Add-from-source.
			plan.takes = append(plan.takes, mergeTake{path: path, blobHash: theirsHash})
			plan.files = append(plan.files, FileMergeReport{Path: path, Status: "added"})

		case !inBase && inOurs && !inTheirs:
			// Added on current side only: keep.
			continue

		case inBase && inOurs && !inTheirs:
			if oursHash == baseHash {
				// Deleted by source, unchanged here: honor the deletion.
				plan.deletes = append(plan.deletes, path)
				plan.files = append(plan.files, FileMergeReport{Path: path, Status: "deleted"})
			} else {
				// Delete/modify: conflict, never silent data loss.
				if err := r.addConflict(plan, branchName, path, baseHash, oursHash, ""); err != nil {
					return nil, err
				}
			}

		case inBase && !inOurs && inTheirs:
			if theirsHash == baseHash {
				// Deleted by current, unchanged in source: stays deleted.
				continue
			}
			// Modified by source, deleted here: conflict.
			if err := r.addConflict(plan, branchName, path, baseHash, "", theirsHash); err != nil {
				return nil, err
			}

		case inBase && !inOurs && !inTheirs:
			// Deleted on both sides: stays deleted, nothing to record.
			continue
		}
	}
	return plan, nil
}

func (r *Repo) addConflict(plan *mergePlan, branchName, path string, baseHash, oursHash, theirsHash object.Hash) error {
	oursData, err := r.blobDataOrNil(oursHash)
	if err != nil {
		return err
	}
	theirsData, err := r.blobDataOrNil(theirsHash)
	if err != nil {
		return err
	}

	artifact := renderConflictArtifact(branchName, oursData, theirsData)
	plan.conflicts = append(plan.conflicts, mergeConflict{
		path:       path,
		baseHash:   baseHash,
		oursHash:   oursHash,
		theirsHash: theirsHash,
		artifact:   artifact,
	})
	plan.files = append(plan.files, FileMergeReport{
		Path:     path,
		Status:   "conflict",
		Artifact: path + ConflictArtifactSuffix,
	})
	return nil
}

func (r *Repo) blobDataOrNil(h object.Hash) ([]byte, error) {
	if h == "" {
		return nil, nil
	}
	blob, err := r.Store.ReadBlob(h)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", h, err)
	}
	return blob.Data, nil
}

// renderConflictArtifact produces the sibling artifact content holding both
// divergent versions. A deleted side renders as an explicit marker so the
// absence is visible rather than an empty section.
func renderConflictArtifact(branchName string, ours, theirs []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("<<<<<<< current\n")
	writeSide(&buf, ours)
	buf.WriteString("=======\n")
	writeSide(&buf, theirs)
	fmt.Fprintf(&buf, ">>>>>>> %s\n", branchName)
	return buf.Bytes()
}

func writeSide(buf *bytes.Buffer, data []byte) {
	if data == nil {
		buf.WriteString("(deleted)\n")
		return
	}
	buf.Write(data)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		buf.WriteByte('\n')
	}
}

// applyMergePlan mutates the working tree: taken files are written out,
// honored deletions removed, and conflict artifacts created. Conflicted
// paths keep their current-side content on disk (a source-side-only
// version is not written; the artifact carries it).
func (r *Repo) applyMergePlan(plan *mergePlan) error {
	for _, t := range plan.takes {
		blob, err := r.Store.ReadBlob(t.blobHash)
		if err != nil {
			return fmt.Errorf("read blob for %q: %w", t.path, err)
		}
		if err := r.writeWorkFile(t.path, blob.Data); err != nil {
			return err
		}
	}

	for _, path := range plan.deletes {
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(path))
		if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %q: %w", path, err)
		}
		r.removeEmptyParents(filepath.Dir(absPath))
	}

	for _, c := range plan.conflicts {
		if err := r.writeWorkFile(c.path+ConflictArtifactSuffix, c.artifact); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) writeWorkFile(relPath string, data []byte) error {
	absPath := filepath.Join(r.RootDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return fmt.Errorf("mkdir for %q: %w", relPath, err)
	}
	if err := os.WriteFile(absPath, data, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", relPath, err)
	}
	return nil
}

// stageMergePlan stages a conflict-free plan: taken files by their known
// blob hashes, deletions as removal intents.
func (r *Repo) stageMergePlan(plan *mergePlan) error {
	stg, err := r.ReadStaging()
	if err != nil {
		return err
	}

	for _, t := range plan.takes {
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(t.path))
		info, err := os.Stat(absPath)
		if err != nil {
			return fmt.Errorf("stat %q: %w", t.path, err)
		}
		stg.Entries[t.path] = &StagingEntry{
			Path:     t.path,
			BlobHash: t.blobHash,
			ModTime:  info.ModTime().UnixNano(),
			Size:     info.Size(),
		}
	}

	if len(plan.deletes) > 0 && stg.Removed == nil {
		stg.Removed = make(map[string]bool)
	}
	for _, path := range plan.deletes {
		delete(stg.Entries, path)
		stg.Removed[path] = true
	}

	return r.WriteStaging(stg)
}

// stageConflictState records every planned outcome in the index so status
// reports it and commit stays blocked until each conflict entry is
// re-staged (or removed) by the user. Conflicted entries keep the
// current-side blob; an empty blob hash records a current-side deletion.
func (r *Repo) stageConflictState(plan *mergePlan) error {
	if err := r.stageMergePlan(plan); err != nil {
		return err
	}
	stg, err := r.ReadStaging()
	if err != nil {
		return err
	}
	for _, c := range plan.conflicts {
		stg.Entries[c.path] = &StagingEntry{
			Path:           c.path,
			BlobHash:       c.oursHash,
			Conflict:       true,
			BaseBlobHash:   c.baseHash,
			OursBlobHash:   c.oursHash,
			TheirsBlobHash: c.theirsHash,
		}
	}
	return r.WriteStaging(stg)
}

// commitMerge creates a commit with two parents. Like Commit, all objects
// are stored before the branch pointer moves.
func (r *Repo) commitMerge(message, author string, parent1, parent2 object.Hash) (object.Hash, error) {
	stg, err := r.ReadStaging()
	if err != nil {
		return "", err
	}

	snapshot, err := r.buildSnapshot(stg, parent1)
	if err != nil {
		return "", err
	}

	commitObj := &object.CommitObj{
		Snapshot:  snapshot,
		Parents:   []object.Hash{parent1, parent2},
		Author:    author,
		Timestamp: time.Now().Unix(),
		Message:   message,
	}

	commitHash, err := r.Store.WriteCommit(commitObj)
	if err != nil {
		return "", fmt.Errorf("write: %w", err)
	}

	if err := r.advanceHead(commitHash, parent1); err != nil {
		return "", err
	}

	if err := r.WriteStaging(&Staging{Entries: make(map[string]*StagingEntry)}); err != nil {
		return "", fmt.Errorf("clear staging: %w", err)
	}
	return commitHash, nil
}

// commitSnapshot reads a commit and returns its snapshot.
func (r *Repo) commitSnapshot(h object.Hash) (map[string]object.Hash, error) {
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		return nil, err
	}
	return c.Snapshot, nil
}

// ---------------------------------------------------------------------------
// MERGE_HEAD plumbing
// ---------------------------------------------------------------------------

func (r *Repo) mergeHeadPath() string {
	return filepath.Join(r.TrakDir, "MERGE_HEAD")
}

// readMergeHead returns the pending merge source tip, or empty when no
// conflicted merge is in progress.
func (r *Repo) readMergeHead() (object.Hash, error) {
	data, err := os.ReadFile(r.mergeHeadPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read MERGE_HEAD: %w", err)
	}
	return object.Hash(strings.TrimSpace(string(data))), nil
}

func (r *Repo) writeMergeHead(h object.Hash) error {
	if err := os.WriteFile(r.mergeHeadPath(), []byte(string(h)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write MERGE_HEAD: %w", err)
	}
	return nil
}

func (r *Repo) clearMergeHead() error {
	if err := os.Remove(r.mergeHeadPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear MERGE_HEAD: %w", err)
	}
	return nil
}
