package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/trakvc/trak/pkg/object"
)

func TestCommit_RoundTrip(t *testing.T) {
	r := initRepo(t)
	stageFile(t, r, "a.txt", "hello\n")

	h, err := r.Commit("initial", "tester")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	c, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if c.Message != "initial" || c.Author != "tester" {
		t.Errorf("commit metadata = %q by %q", c.Message, c.Author)
	}
	if len(c.Parents) != 0 {
		t.Errorf("first commit has %d parents, want 0", len(c.Parents))
	}
	blobHash, ok := c.Snapshot["a.txt"]
	if !ok {
		t.Fatal("a.txt missing from snapshot")
	}
	blob, err := r.Store.ReadBlob(blobHash)
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if string(blob.Data) != "hello\n" {
		t.Errorf("snapshot blob = %q, want %q", blob.Data, "hello\n")
	}

	// Commit clears the staging area.
	stg, _ := r.ReadStaging()
	if !stg.Empty() {
		t.Error("staging not empty after commit")
	}
}

func TestCommit_NothingStaged(t *testing.T) {
	r := initRepo(t)
	if _, err := r.Commit("empty", "tester"); !errors.Is(err, ErrNothingStaged) {
		t.Errorf("Commit with empty staging = %v, want ErrNothingStaged", err)
	}
}

func TestCommit_NoOpSnapshotRejected(t *testing.T) {
	r := initRepoWithFile(t, "same\n")

	// Re-stage identical content; the resulting snapshot equals the parent's.
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := r.Commit("no-op", "tester"); !errors.Is(err, ErrNothingStaged) {
		t.Errorf("no-op commit = %v, want ErrNothingStaged", err)
	}
}

func TestCommit_UntouchedFilesPersist(t *testing.T) {
	r := initRepoWithFile(t, "keep me\n")

	stageFile(t, r, "b.txt", "new file\n")
	h := commitAll(t, r, "second")

	c, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if _, ok := c.Snapshot["a.txt"]; !ok {
		t.Error("a.txt dropped from snapshot despite not being re-staged")
	}
	if _, ok := c.Snapshot["b.txt"]; !ok {
		t.Error("b.txt missing from snapshot")
	}
}

func TestCommit_ParentChain(t *testing.T) {
	r := initRepo(t)
	stageFile(t, r, "a.txt", "v1\n")
	first := commitAll(t, r, "first")

	stageFile(t, r, "a.txt", "v2\n")
	second := commitAll(t, r, "second")

	c, err := r.Store.ReadCommit(second)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(c.Parents) != 1 || c.Parents[0] != first {
		t.Errorf("second commit parents = %v, want [%s]", c.Parents, first)
	}
}

// Committed state is immutable: later commits never disturb earlier ones.
func TestCommit_HistoryImmutable(t *testing.T) {
	r := initRepo(t)
	stageFile(t, r, "a.txt", "v1\n")
	first := commitAll(t, r, "first")

	stageFile(t, r, "a.txt", "v2\n")
	commitAll(t, r, "second")

	c, err := r.Store.ReadCommit(first)
	if err != nil {
		t.Fatalf("ReadCommit(first): %v", err)
	}
	blob, err := r.Store.ReadBlob(c.Snapshot["a.txt"])
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if string(blob.Data) != "v1\n" {
		t.Errorf("first commit content = %q, want %q", blob.Data, "v1\n")
	}
}

func TestLog_NewestFirstAndFinite(t *testing.T) {
	r := initRepo(t)
	stageFile(t, r, "a.txt", "v1\n")
	first := commitAll(t, r, "first")
	stageFile(t, r, "a.txt", "v2\n")
	second := commitAll(t, r, "second")
	stageFile(t, r, "a.txt", "v3\n")
	third := commitAll(t, r, "third")

	tip, err := r.HeadCommit()
	if err != nil {
		t.Fatalf("HeadCommit: %v", err)
	}
	if tip != third {
		t.Fatalf("HEAD = %s, want %s", tip, third)
	}

	entries, err := r.Log(tip, 0)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("log length = %d, want 3", len(entries))
	}
	want := []struct {
		hash object.Hash
		msg  string
	}{{third, "third"}, {second, "second"}, {first, "first"}}
	for i, w := range want {
		if entries[i].Hash != w.hash || entries[i].Commit.Message != w.msg {
			t.Errorf("log[%d] = %s %q, want %s %q",
				i, entries[i].Hash, entries[i].Commit.Message, w.hash, w.msg)
		}
	}
}

// A parent link pointing at a missing object must fail the walk, not
// silently shorten the history.
func TestLog_MissingParentIsError(t *testing.T) {
	r := initRepo(t)
	stageFile(t, r, "a.txt", "v1\n")
	first := commitAll(t, r, "first")
	stageFile(t, r, "a.txt", "v2\n")
	commitAll(t, r, "second")

	objPath := filepath.Join(r.TrakDir, "objects", string(first[:2]), string(first[2:]))
	if err := os.Remove(objPath); err != nil {
		t.Fatalf("remove parent object: %v", err)
	}

	tip, _ := r.HeadCommit()
	if _, err := r.Log(tip, 0); !errors.Is(err, object.ErrNotFound) {
		t.Errorf("Log with missing parent = %v, want ErrNotFound", err)
	}
}

func TestLog_Limit(t *testing.T) {
	r := initRepo(t)
	stageFile(t, r, "a.txt", "v1\n")
	commitAll(t, r, "first")
	stageFile(t, r, "a.txt", "v2\n")
	commitAll(t, r, "second")

	tip, _ := r.HeadCommit()
	entries, err := r.Log(tip, 1)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(entries) != 1 || entries[0].Commit.Message != "second" {
		t.Errorf("limited log = %d entries, first %q; want 1 entry %q",
			len(entries), entries[0].Commit.Message, "second")
	}
}
