package repo

import (
	"errors"
	"testing"
)

func TestCreateBranch_AtCurrentCommit(t *testing.T) {
	r := initRepoWithFile(t, "v1\n")
	tip, _ := r.HeadCommit()

	if err := r.CreateBranch("dev"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	got, err := r.ResolveBranch("dev")
	if err != nil {
		t.Fatalf("ResolveBranch: %v", err)
	}
	if got != tip {
		t.Errorf("dev points at %s, want %s", got, tip)
	}
}

func TestCreateBranch_RequiresCommit(t *testing.T) {
	r := initRepo(t)
	if err := r.CreateBranch("dev"); err == nil {
		t.Error("CreateBranch before any commit should fail")
	}
}

func TestCreateBranch_Duplicate(t *testing.T) {
	r := initRepoWithFile(t, "v1\n")
	if err := r.CreateBranch("dev"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := r.CreateBranch("dev"); !errors.Is(err, ErrBranchExists) {
		t.Errorf("duplicate CreateBranch = %v, want ErrBranchExists", err)
	}
}

func TestCreateBranch_InvalidNames(t *testing.T) {
	r := initRepoWithFile(t, "v1\n")
	for _, name := range []string{"", "has space", "a/b", "..", "stale.lock"} {
		if err := r.CreateBranch(name); err == nil {
			t.Errorf("CreateBranch(%q) should fail", name)
		}
	}
}

func TestListBranches_SortedWithCurrent(t *testing.T) {
	r := initRepoWithFile(t, "v1\n")
	for _, name := range []string{"zeta", "alpha"} {
		if err := r.CreateBranch(name); err != nil {
			t.Fatalf("CreateBranch(%s): %v", name, err)
		}
	}

	names, err := r.ListBranches()
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	want := []string{"alpha", "main", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("branches = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("branches = %v, want %v", names, want)
		}
	}
}

func TestDeleteBranch(t *testing.T) {
	r := initRepoWithFile(t, "v1\n")
	if err := r.CreateBranch("dev"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	if err := r.DeleteBranch("dev"); err != nil {
		t.Fatalf("DeleteBranch: %v", err)
	}
	if _, err := r.ResolveBranch("dev"); !errors.Is(err, ErrBranchNotFound) {
		t.Errorf("ResolveBranch(deleted) = %v, want ErrBranchNotFound", err)
	}
}

func TestDeleteBranch_RefusesCurrent(t *testing.T) {
	r := initRepoWithFile(t, "v1\n")
	if err := r.DeleteBranch("main"); err == nil {
		t.Error("deleting the current branch should fail")
	}
}

func TestDeleteBranch_Missing(t *testing.T) {
	r := initRepoWithFile(t, "v1\n")
	if err := r.DeleteBranch("ghost"); !errors.Is(err, ErrBranchNotFound) {
		t.Errorf("DeleteBranch(missing) = %v, want ErrBranchNotFound", err)
	}
}

// Branches advance independently: committing on one leaves the other fixed.
func TestBranch_IndependentTips(t *testing.T) {
	r := initRepoWithFile(t, "v1\n")
	forkPoint, _ := r.HeadCommit()
	if err := r.CreateBranch("dev"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	stageFile(t, r, "a.txt", "v2 on main\n")
	mainTip := commitAll(t, r, "advance main")

	devTip, err := r.ResolveBranch("dev")
	if err != nil {
		t.Fatalf("ResolveBranch: %v", err)
	}
	if devTip != forkPoint {
		t.Errorf("dev moved to %s, want fork point %s", devTip, forkPoint)
	}
	if got, _ := r.ResolveBranch("main"); got != mainTip {
		t.Errorf("main = %s, want %s", got, mainTip)
	}
}

func TestUpdateBranchRef_CASMismatch(t *testing.T) {
	r := initRepoWithFile(t, "v1\n")
	tip, _ := r.HeadCommit()

	stageFile(t, r, "a.txt", "v2\n")
	newTip := commitAll(t, r, "second")

	// Stale expected-old value must be rejected.
	err := r.UpdateBranchRef("main", tip, tip)
	if !errors.Is(err, ErrRefCASMismatch) {
		t.Errorf("UpdateBranchRef with stale old = %v, want ErrRefCASMismatch", err)
	}
	if got, _ := r.ResolveBranch("main"); got != newTip {
		t.Errorf("main moved to %s after failed CAS, want %s", got, newTip)
	}
}
