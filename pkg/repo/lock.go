package repo

import (
	"fmt"
	"os"
	"path/filepath"
)

// LockRepo takes the repository-wide exclusive lock that serializes
// mutating commands across processes. It returns a release function that
// must be called on every exit path:
//
//	unlock, err := r.LockRepo()
//	if err != nil { ... }
//	defer unlock()
//
// The lock is a .trak/lock file created with O_EXCL; a concurrent holder
// causes LockRepo to wait up to the ref lock limit before failing.
func (r *Repo) LockRepo() (func(), error) {
	lockPath := filepath.Join(r.TrakDir, "lock")
	f, err := acquireLockFile(lockPath)
	if err != nil {
		return nil, fmt.Errorf("lock repository: %w", err)
	}

	// Record the holder pid for post-crash diagnosis.
	fmt.Fprintf(f, "%d\n", os.Getpid())
	_ = f.Close()

	return func() {
		_ = os.Remove(lockPath)
	}, nil
}
