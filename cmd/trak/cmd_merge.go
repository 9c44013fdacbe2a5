package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/trakvc/trak/pkg/repo"
)

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <branch>",
		Short: "Merge a branch into the current branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			branchName := args[0]

			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			unlock, err := r.LockRepo()
			if err != nil {
				return err
			}
			defer unlock()

			cfg, err := r.ReadConfig()
			if err != nil {
				return err
			}
			author := cfg.User.Name
			if author == "" {
				author = os.Getenv("USER")
			}
			if author == "" {
				author = "unknown"
			}

			report, err := r.Merge(branchName, author)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if report.State == repo.MergeUpToDate {
				fmt.Fprintln(out, "already up to date")
				return nil
			}

			for _, f := range report.Files {
				switch f.Status {
				case "conflict":
					color.New(color.FgRed).Fprintf(out, "  %s: CONFLICT", f.Path)
					fmt.Fprintf(out, " (see %s)\n", f.Artifact)
				case "added":
					fmt.Fprintf(out, "  %s: added\n", f.Path)
				case "deleted":
					fmt.Fprintf(out, "  %s: deleted\n", f.Path)
				default:
					fmt.Fprintf(out, "  %s: clean\n", f.Path)
				}
			}

			if report.State == repo.MergeConflicted {
				fmt.Fprintf(out, "merge stopped with %d conflict", report.Conflicts)
				if report.Conflicts != 1 {
					fmt.Fprint(out, "s")
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, "resolve the .conflict files, re-stage, and run trak commit")
				return nil
			}

			fmt.Fprintln(out, "merge completed cleanly")
			fmt.Fprintf(out, "[%s] Merge branch '%s'\n", report.MergeCommit.Short(), branchName)
			return nil
		},
	}
}
