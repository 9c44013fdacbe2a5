package repo

import "errors"

// Failure kinds surfaced to the command layer. Commands match these with
// errors.Is and translate them into exit status and messages.
var (
	ErrNotRepository    = errors.New("not a trak repository")
	ErrFileNotFound     = errors.New("file not found")
	ErrNothingStaged    = errors.New("nothing staged")
	ErrNotStaged        = errors.New("file is not staged")
	ErrBranchExists     = errors.New("branch already exists")
	ErrBranchNotFound   = errors.New("branch not found")
	ErrAncestorNotFound = errors.New("no common ancestor")
	ErrDirtyWorkTree    = errors.New("working tree has uncommitted changes")
	ErrUnresolved       = errors.New("unresolved merge conflicts")
)
