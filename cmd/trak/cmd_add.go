package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trakvc/trak/pkg/repo"
)

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>...",
		Short: "Stage file contents for the next commit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			unlock, err := r.LockRepo()
			if err != nil {
				return err
			}
			defer unlock()

			if err := r.Add(args); err != nil {
				return err
			}
			for _, p := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", p)
			}
			return nil
		},
	}
}
