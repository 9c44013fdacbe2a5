// Package repo implements trak repository operations: staging, commits,
// branches, checkout, status, and three-way merge over a content-addressed
// object store.
package repo

import (
	"github.com/trakvc/trak/pkg/object"
)

// Repo represents an opened trak repository.
type Repo struct {
	RootDir string        // working directory root
	TrakDir string        // .trak/ directory
	Store   *object.Store // content-addressed object store
}
