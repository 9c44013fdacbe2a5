package object

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MinPrefixLen is the shortest abbreviated hash accepted on the command line.
const MinPrefixLen = 4

// ErrAmbiguousPrefix is returned when an abbreviated hash matches more than
// one object.
var ErrAmbiguousPrefix = errors.New("ambiguous object prefix")

// ResolvePrefix expands an abbreviated hex hash to the full hash of the
// single object it identifies. Full-length hashes are returned as-is after
// an existence check.
func (s *Store) ResolvePrefix(prefix string) (Hash, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if !ValidHex(prefix) || len(prefix) < MinPrefixLen {
		return "", fmt.Errorf("resolve %q: not a valid object prefix", prefix)
	}

	if len(prefix) == 64 {
		h := Hash(prefix)
		if !s.Has(h) {
			return "", fmt.Errorf("resolve %s: %w", prefix, ErrNotFound)
		}
		return h, nil
	}

	fanout := prefix[:2]
	rest := ""
	if len(prefix) > 2 {
		rest = prefix[2:]
	}

	dir := filepath.Join(s.root, "objects", fanout)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("resolve %s: %w", prefix, ErrNotFound)
		}
		return "", fmt.Errorf("resolve %s: %w", prefix, err)
	}

	var match Hash
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || !strings.HasPrefix(name, rest) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("resolve %s: %w", prefix, ErrAmbiguousPrefix)
		}
		match = Hash(fanout + name)
	}
	if match == "" {
		return "", fmt.Errorf("resolve %s: %w", prefix, ErrNotFound)
	}
	return match, nil
}
