package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/trakvc/trak/pkg/diff"
	"github.com/trakvc/trak/pkg/repo"
)

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <path>",
		Short: "Show line changes between the last commit and the working tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			ops, err := r.DiffFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !diff.Changed(ops) {
				fmt.Fprintf(out, "no changes in %s\n", args[0])
				return nil
			}

			fmt.Fprintf(out, "--- a/%s\n", args[0])
			fmt.Fprintf(out, "+++ b/%s\n", args[0])
			del := color.New(color.FgRed)
			ins := color.New(color.FgGreen)
			for _, op := range ops {
				switch op.Type {
				case diff.Delete:
					del.Fprintf(out, "-%s\n", op.Line)
				case diff.Insert:
					ins.Fprintf(out, "+%s\n", op.Line)
				case diff.Equal:
					fmt.Fprintf(out, " %s\n", op.Line)
				}
			}
			return nil
		},
	}
}
