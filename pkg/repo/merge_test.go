package repo

import (
	"errors"
	"strings"
	"testing"

	"github.com/trakvc/trak/pkg/object"
)

// branchWithChange commits base content on main, forks a branch, and commits
// changed content on it, leaving HEAD back on main.
func branchWithChange(t *testing.T, r *Repo, branch, path, content string) object.Hash {
	t.Helper()
	if err := r.CreateBranch(branch); err != nil {
		t.Fatalf("CreateBranch(%s): %v", branch, err)
	}
	if err := r.CheckoutBranch(branch, false); err != nil {
		t.Fatalf("CheckoutBranch(%s): %v", branch, err)
	}
	stageFile(t, r, path, content)
	tip := commitAll(t, r, "change on "+branch)
	if err := r.CheckoutBranch("main", false); err != nil {
		t.Fatalf("CheckoutBranch(main): %v", err)
	}
	return tip
}

func TestMerge_SourceOnlyChangeIsClean(t *testing.T) {
	r := initRepoWithFile(t, "base\n")
	mainTip, _ := r.HeadCommit()
	devTip := branchWithChange(t, r, "dev", "a.txt", "from dev\n")

	report, err := r.Merge("dev", "tester")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if report.State != MergeClean {
		t.Fatalf("merge state = %v, want MergeClean", report.State)
	}
	if got := readWorkFile(t, r, "a.txt"); got != "from dev\n" {
		t.Errorf("merged content = %q, want %q", got, "from dev\n")
	}

	c, err := r.Store.ReadCommit(report.MergeCommit)
	if err != nil {
		t.Fatalf("ReadCommit(merge): %v", err)
	}
	if len(c.Parents) != 2 || c.Parents[0] != mainTip || c.Parents[1] != devTip {
		t.Errorf("merge parents = %v, want [%s %s]", c.Parents, mainTip, devTip)
	}
	if tip, _ := r.HeadCommit(); tip != report.MergeCommit {
		t.Error("HEAD did not advance to the merge commit")
	}
}

func TestMerge_UpToDate(t *testing.T) {
	r := initRepoWithFile(t, "base\n")
	if err := r.CreateBranch("dev"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	// main advanced past dev; dev has nothing new.
	stageFile(t, r, "a.txt", "newer on main\n")
	commitAll(t, r, "advance main")

	report, err := r.Merge("dev", "tester")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if report.State != MergeUpToDate {
		t.Errorf("merge state = %v, want MergeUpToDate", report.State)
	}
}

func TestMerge_BothChangedConflicts(t *testing.T) {
	r := initRepoWithFile(t, "base\n")
	devTip := branchWithChange(t, r, "dev", "a.txt", "dev version\n")

	stageFile(t, r, "a.txt", "main version\n")
	mainTip := commitAll(t, r, "change on main")

	report, err := r.Merge("dev", "tester")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if report.State != MergeConflicted {
		t.Fatalf("merge state = %v, want MergeConflicted", report.State)
	}
	if report.Conflicts != 1 {
		t.Errorf("conflicts = %d, want 1", report.Conflicts)
	}

	// The path keeps the current-side content.
	if got := readWorkFile(t, r, "a.txt"); got != "main version\n" {
		t.Errorf("conflicted path content = %q, want current side", got)
	}

	// The sibling artifact holds both versions, delimited.
	artifact := readWorkFile(t, r, "a.txt.conflict")
	for _, marker := range []string{
		"<<<<<<< current",
		"main version",
		"=======",
		"dev version",
		">>>>>>> dev",
	} {
		if !strings.Contains(artifact, marker) {
			t.Errorf("artifact missing %q:\n%s", marker, artifact)
		}
	}

	// No commit was created; the branch tip is unchanged.
	if tip, _ := r.HeadCommit(); tip != mainTip {
		t.Errorf("HEAD moved to %s during a conflicted merge", tip)
	}

	// Commit is blocked until the conflict is resolved.
	if _, err := r.Commit("premature", "tester"); !errors.Is(err, ErrUnresolved) {
		t.Errorf("Commit with unresolved conflict = %v, want ErrUnresolved", err)
	}

	// Resolve, re-stage, and conclude: the commit records both parents.
	writeWorkFile(t, r, "a.txt", "resolved\n")
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add(resolution): %v", err)
	}
	mergeHash, err := r.Commit("merge dev", "tester")
	if err != nil {
		t.Fatalf("Commit(resolution): %v", err)
	}
	c, err := r.Store.ReadCommit(mergeHash)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(c.Parents) != 2 || c.Parents[0] != mainTip || c.Parents[1] != devTip {
		t.Errorf("concluding commit parents = %v, want [%s %s]", c.Parents, mainTip, devTip)
	}

	// A fresh merge is possible again.
	if pending, _ := r.readMergeHead(); pending != "" {
		t.Error("MERGE_HEAD not cleared by the concluding commit")
	}
}

func TestMerge_AddFromSource(t *testing.T) {
	r := initRepoWithFile(t, "base\n")
	if err := r.CreateBranch("dev"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := r.CheckoutBranch("dev", false); err != nil {
		t.Fatalf("CheckoutBranch: %v", err)
	}
	stageFile(t, r, "new.txt", "added on dev\n")
	commitAll(t, r, "add new.txt")
	if err := r.CheckoutBranch("main", false); err != nil {
		t.Fatalf("CheckoutBranch(main): %v", err)
	}

	report, err := r.Merge("dev", "tester")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if report.State != MergeClean {
		t.Fatalf("merge state = %v, want MergeClean", report.State)
	}
	if got := readWorkFile(t, r, "new.txt"); got != "added on dev\n" {
		t.Errorf("added file content = %q", got)
	}

	var added bool
	for _, f := range report.Files {
		if f.Path == "new.txt" && f.Status == "added" {
			added = true
		}
	}
	if !added {
		t.Errorf("report lacks added new.txt: %+v", report.Files)
	}
}

func TestMerge_DeleteModifyConflict(t *testing.T) {
	r := initRepoWithFile(t, "base\n")

	// dev modifies a.txt; main deletes it.
	branchWithChange(t, r, "dev", "a.txt", "modified on dev\n")
	if err := r.Remove("a.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	writeWorkFile(t, r, "keep.txt", "so the commit is not empty\n")
	if err := r.Add([]string{"keep.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	commitAll(t, r, "delete a.txt on main")
	// The working copy of a deleted tracked file goes too.
	if err := removeWorkFile(r, "a.txt"); err != nil {
		t.Fatalf("remove working file: %v", err)
	}

	report, err := r.Merge("dev", "tester")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if report.State != MergeConflicted {
		t.Fatalf("delete/modify merge state = %v, want MergeConflicted", report.State)
	}

	artifact := readWorkFile(t, r, "a.txt.conflict")
	if !strings.Contains(artifact, "(deleted)") {
		t.Errorf("artifact does not mark the deleted side:\n%s", artifact)
	}
	if !strings.Contains(artifact, "modified on dev") {
		t.Errorf("artifact lacks the surviving content:\n%s", artifact)
	}
}

func TestMerge_HonorsSourceDeletion(t *testing.T) {
	r := initRepo(t)
	stageFile(t, r, "a.txt", "base\n")
	stageFile(t, r, "doomed.txt", "delete me on dev\n")
	commitAll(t, r, "initial")

	// dev deletes doomed.txt; main leaves it untouched.
	if err := r.CreateBranch("dev"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := r.CheckoutBranch("dev", false); err != nil {
		t.Fatalf("CheckoutBranch(dev): %v", err)
	}
	if err := r.Remove("doomed.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	stageFile(t, r, "a.txt", "tweak so the commit is non-empty\n")
	commitAll(t, r, "drop doomed.txt")
	if err := removeWorkFile(r, "doomed.txt"); err != nil {
		t.Fatalf("remove working file: %v", err)
	}
	if err := r.CheckoutBranch("main", false); err != nil {
		t.Fatalf("CheckoutBranch(main): %v", err)
	}

	report, err := r.Merge("dev", "tester")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if report.State != MergeClean {
		t.Fatalf("merge state = %v, want MergeClean", report.State)
	}
	if workFileExists(r, "doomed.txt") {
		t.Error("doomed.txt still present after the merge honored its deletion")
	}
	c, _ := r.Store.ReadCommit(report.MergeCommit)
	if _, ok := c.Snapshot["doomed.txt"]; ok {
		t.Error("doomed.txt still in the merge commit snapshot")
	}
}

func TestMerge_RefusesDirtyTree(t *testing.T) {
	r := initRepoWithFile(t, "base\n")
	branchWithChange(t, r, "dev", "a.txt", "dev\n")

	writeWorkFile(t, r, "a.txt", "uncommitted\n")
	if _, err := r.Merge("dev", "tester"); !errors.Is(err, ErrDirtyWorkTree) {
		t.Errorf("Merge with dirty tree = %v, want ErrDirtyWorkTree", err)
	}
}

func TestMerge_UnknownBranch(t *testing.T) {
	r := initRepoWithFile(t, "base\n")
	if _, err := r.Merge("ghost", "tester"); !errors.Is(err, ErrBranchNotFound) {
		t.Errorf("Merge(unknown branch) = %v, want ErrBranchNotFound", err)
	}
}

func TestMerge_RefusesSecondWhilePending(t *testing.T) {
	r := initRepoWithFile(t, "base\n")
	branchWithChange(t, r, "dev", "a.txt", "dev version\n")
	stageFile(t, r, "a.txt", "main version\n")
	commitAll(t, r, "change on main")

	report, err := r.Merge("dev", "tester")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if report.State != MergeConflicted {
		t.Fatalf("merge state = %v, want MergeConflicted", report.State)
	}

	if _, err := r.Merge("dev", "tester"); err == nil {
		t.Error("second merge while one is pending should fail")
	}
}
