package object

// Hash is a 64-character hex-encoded SHA-256 digest.
type Hash string

// Short returns the abbreviated form of a hash shown to users.
func (h Hash) Short() string {
	if len(h) > 8 {
		return string(h[:8])
	}
	return string(h)
}

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeCommit ObjectType = "commit"
)

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

// CommitObj is an immutable record of a whole-tree snapshot plus parent
// linkage and metadata. Snapshot maps repo-relative file paths to blob
// hashes and represents the complete tree state at the commit, not a delta.
type CommitObj struct {
	Snapshot  map[string]Hash
	Parents   []Hash // 0 for the root commit, 1 for a normal commit, 2 for a merge
	Author    string
	Timestamp int64
	Signature string // optional detached signature, excluded from the signing payload
	Message   string
}

// IsMerge reports whether the commit has two parents.
func (c *CommitObj) IsMerge() bool {
	return len(c.Parents) == 2
}
