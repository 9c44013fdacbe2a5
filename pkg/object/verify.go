package object

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// VerifyReport summarizes a store-wide integrity scan.
type VerifyReport struct {
	Objects int
	Blobs   int
	Commits int
}

// Verify re-reads every object in the store and checks that its content
// still hashes to the name it is filed under. The first corrupt or
// unreadable object aborts the scan with an error.
func (s *Store) Verify() (*VerifyReport, error) {
	objectsDir := filepath.Join(s.root, "objects")

	report := &VerifyReport{}
	err := filepath.WalkDir(objectsDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(objectsDir, path)
		if err != nil {
			return err
		}
		h := Hash(strings.ReplaceAll(filepath.ToSlash(rel), "/", ""))

		objType, _, err := s.Read(h)
		if err != nil {
			return err
		}

		report.Objects++
		switch objType {
		case TypeBlob:
			report.Blobs++
		case TypeCommit:
			report.Commits++
		default:
			return fmt.Errorf("verify %s: unknown object type %q", h, objType)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return report, nil
	}
	if err != nil {
		return nil, fmt.Errorf("verify store: %w", err)
	}
	return report, nil
}
