package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/trakvc/trak/pkg/object"
	"github.com/trakvc/trak/pkg/repo"
)

func newLogCmd() *cobra.Command {
	var oneline bool
	var limit int
	var branch string

	cmd := &cobra.Command{
		Use:   "log [<commit-id>]",
		Short: "Show commit history, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			var start object.Hash
			switch {
			case len(args) == 1:
				start, err = r.Store.ResolvePrefix(args[0])
				if err != nil {
					return err
				}
			case branch != "":
				start, err = r.ResolveBranch(branch)
				if err != nil {
					return err
				}
			default:
				start, err = r.HeadCommit()
				if err != nil {
					return err
				}
			}
			if start == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no commits yet")
				return nil
			}

			entries, err := r.Log(start, limit)
			if err != nil {
				return err
			}

			decorated := start
			branchName := branch
			if branchName == "" && len(args) == 0 {
				if head, err := r.ReadHead(); err == nil && head.Attached() {
					branchName = head.Branch
				}
			}

			out := cmd.OutOrStdout()
			commitColor := color.New(color.FgYellow)
			for i, entry := range entries {
				decoration := ""
				if entry.Hash == decorated && branchName != "" {
					decoration = fmt.Sprintf(" (HEAD -> %s)", branchName)
				}

				if oneline {
					commitColor.Fprintf(out, "%s", entry.Hash.Short())
					fmt.Fprintf(out, "%s %s\n", decoration, firstLine(entry.Commit.Message))
					continue
				}

				if i > 0 {
					fmt.Fprintln(out)
				}
				commitColor.Fprintf(out, "commit %s", entry.Hash)
				fmt.Fprintln(out, decoration)
				if entry.Commit.IsMerge() {
					fmt.Fprintf(out, "Merge: %s %s\n",
						entry.Commit.Parents[0].Short(), entry.Commit.Parents[1].Short())
				}
				fmt.Fprintf(out, "Author: %s\n", entry.Commit.Author)
				fmt.Fprintf(out, "Date:   %s\n", time.Unix(entry.Commit.Timestamp, 0).Format(time.RFC1123))
				fmt.Fprintf(out, "\n    %s\n", entry.Commit.Message)

				paths := make([]string, 0, len(entry.Commit.Snapshot))
				for p := range entry.Commit.Snapshot {
					paths = append(paths, p)
				}
				sort.Strings(paths)
				fmt.Fprintln(out, "\nFiles:")
				for _, p := range paths {
					fmt.Fprintf(out, "    %s\n", p)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "one line per commit")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "limit number of commits (0 = all)")
	cmd.Flags().StringVar(&branch, "branch", "", "log a branch other than HEAD")

	return cmd
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
