package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/trakvc/trak/pkg/object"
)

// ErrRefCASMismatch indicates a ref update lost a compare-and-swap race.
var ErrRefCASMismatch = errors.New("ref compare-and-swap mismatch")

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second
)

// Head holds the decoded state of the HEAD marker: either attached to a
// branch or detached at a commit. Exactly one field is set.
type Head struct {
	Branch   string      // attached: branch name, e.g. "main"
	Detached object.Hash // detached: raw commit hash
}

// Attached reports whether HEAD tracks a branch.
func (h Head) Attached() bool { return h.Branch != "" }

// ReadHead reads and decodes .trak/HEAD.
func (r *Repo) ReadHead() (Head, error) {
	data, err := os.ReadFile(filepath.Join(r.TrakDir, "HEAD"))
	if err != nil {
		return Head{}, fmt.Errorf("read HEAD: %w", err)
	}
	content := strings.TrimSpace(string(data))

	if target, ok := strings.CutPrefix(content, "ref: "); ok {
		const heads = "refs/heads/"
		if !strings.HasPrefix(target, heads) {
			return Head{}, fmt.Errorf("read HEAD: unexpected symbolic target %q", target)
		}
		return Head{Branch: strings.TrimPrefix(target, heads)}, nil
	}
	return Head{Detached: object.Hash(content)}, nil
}

// WriteHead encodes and writes the HEAD marker.
func (r *Repo) WriteHead(h Head) error {
	var content string
	if h.Attached() {
		content = "ref: refs/heads/" + h.Branch + "\n"
	} else {
		content = string(h.Detached) + "\n"
	}
	headPath := filepath.Join(r.TrakDir, "HEAD")
	if err := os.WriteFile(headPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write HEAD: %w", err)
	}
	return nil
}

// HeadCommit resolves HEAD to a commit hash. Returns the empty hash with no
// error when HEAD is attached to a branch that has no commits yet.
func (r *Repo) HeadCommit() (object.Hash, error) {
	head, err := r.ReadHead()
	if err != nil {
		return "", err
	}
	if !head.Attached() {
		return head.Detached, nil
	}
	h, err := readRefHash(r.branchRefPath(head.Branch))
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return h, nil
}

// ResolveBranch resolves a branch name to its tip commit hash.
// Returns ErrBranchNotFound if the branch ref does not exist.
func (r *Repo) ResolveBranch(name string) (object.Hash, error) {
	h, err := readRefHash(r.branchRefPath(name))
	if err != nil {
		return "", fmt.Errorf("resolve branch %q: %w", name, err)
	}
	if h == "" {
		return "", fmt.Errorf("resolve branch %q: %w", name, ErrBranchNotFound)
	}
	return h, nil
}

func (r *Repo) branchRefPath(name string) string {
	return filepath.Join(r.TrakDir, "refs", "heads", name)
}

// UpdateBranchRef writes a hash to the branch ref file using lockfile +
// rename atomic semantics. If expectedOld is provided, the update only
// succeeds when the current ref hash matches it (empty hash matches a
// missing ref).
func (r *Repo) UpdateBranchRef(name string, h object.Hash, expectedOld ...object.Hash) error {
	if len(expectedOld) > 1 {
		return fmt.Errorf("update branch %q: expected at most one old hash", name)
	}

	refPath := r.branchRefPath(name)
	if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
		return fmt.Errorf("update branch %q: mkdir: %w", name, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := acquireLockFile(lockPath)
	if err != nil {
		return fmt.Errorf("update branch %q: lock: %w", name, err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	oldHash, err := readRefHash(refPath)
	if err != nil {
		return fmt.Errorf("update branch %q: read old hash: %w", name, err)
	}
	if len(expectedOld) == 1 && oldHash != expectedOld[0] {
		return fmt.Errorf(
			"update branch %q: %w (expected %s, found %s)",
			name, ErrRefCASMismatch, expectedOld[0], oldHash,
		)
	}

	if _, err := lockFile.WriteString(string(h) + "\n"); err != nil {
		return fmt.Errorf("update branch %q: write: %w", name, err)
	}
	if err := lockFile.Sync(); err != nil {
		return fmt.Errorf("update branch %q: sync: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("update branch %q: close: %w", name, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("update branch %q: rename: %w", name, err)
	}
	cleanupLock = false
	return nil
}

// acquireLockFile creates lockPath with O_EXCL, retrying until the wait
// limit elapses. The caller owns both the file and its removal.
func acquireLockFile(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(refLockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for lock %q", lockPath)
			}
			time.Sleep(refLockRetryDelay)
			continue
		}
		return nil, err
	}
}

// readRefHash reads a ref file, returning the empty hash when it is absent.
func readRefHash(refPath string) (object.Hash, error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return object.Hash(strings.TrimSpace(string(data))), nil
}
