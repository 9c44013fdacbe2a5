package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/trakvc/trak/pkg/repo"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show working tree status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			entries, err := r.Status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			head, err := r.ReadHead()
			switch {
			case err != nil:
				return err
			case head.Attached():
				tip, err := r.HeadCommit()
				if err != nil {
					return err
				}
				if tip == "" {
					fmt.Fprintf(out, "on %s (no commits yet)\n", head.Branch)
				} else {
					fmt.Fprintf(out, "on %s\n", head.Branch)
				}
			default:
				fmt.Fprintf(out, "HEAD detached at %s\n", head.Detached.Short())
			}

			var conflicts, staged, unstaged, untracked []string
			for _, e := range entries {
				switch {
				case e.IndexStatus == repo.StatusConflict:
					conflicts = append(conflicts, e.Path)
				case e.WorkStatus == repo.StatusUntracked:
					untracked = append(untracked, e.Path)
				default:
					if e.IndexStatus != repo.StatusClean {
						staged = append(staged, fmt.Sprintf("%s (%s)", e.Path, statusWord(e.IndexStatus)))
					}
					if e.WorkStatus != repo.StatusClean {
						unstaged = append(unstaged, fmt.Sprintf("%s (%s)", e.Path, statusWord(e.WorkStatus)))
					}
				}
			}

			if len(conflicts) > 0 {
				color.New(color.FgRed).Fprintln(out, "unresolved conflicts:")
				for _, p := range conflicts {
					fmt.Fprintf(out, "  ! %s\n", p)
				}
			}
			if len(staged) > 0 {
				color.New(color.FgGreen).Fprintln(out, "staged for commit:")
				for _, p := range staged {
					fmt.Fprintf(out, "  + %s\n", p)
				}
			}
			if len(unstaged) > 0 {
				color.New(color.FgYellow).Fprintln(out, "not staged:")
				for _, p := range unstaged {
					fmt.Fprintf(out, "  ~ %s\n", p)
				}
			}
			if len(untracked) > 0 {
				fmt.Fprintln(out, "untracked:")
				for _, p := range untracked {
					fmt.Fprintf(out, "  ? %s\n", p)
				}
			}
			if len(conflicts)+len(staged)+len(unstaged)+len(untracked) == 0 {
				fmt.Fprintln(out, "working tree clean")
			}
			return nil
		},
	}
}

func statusWord(s repo.FileStatus) string {
	switch s {
	case repo.StatusNew:
		return "new"
	case repo.StatusModified:
		return "modified"
	case repo.StatusDeleted:
		return "deleted"
	case repo.StatusDirty:
		return "modified"
	case repo.StatusUntracked:
		return "untracked"
	case repo.StatusConflict:
		return "conflict"
	default:
		return "unchanged"
	}
}
