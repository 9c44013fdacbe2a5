package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trakvc/trak/pkg/repo"
)

func newCheckoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout [<commit-id>] <path>",
		Short: "Restore a file from HEAD or from a given commit",
		Args:  cobra.RangeArgs(1, 2),
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

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				if err := r.RestoreFile(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(out, "restored %s from HEAD\n", args[0])
				return nil
			}

			if err := r.RestoreFileAt(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(out, "restored %s from commit %s\n", args[1], args[0])
			return nil
		},
	}
}

func newCheckoutBranchCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "checkout-branch <name>",
		Short: "Switch to a branch (or detach at a commit id)",
		Args:  cobra.ExactArgs(1),
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

			if err := r.CheckoutBranch(args[0], force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "switched to %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "discard uncommitted changes")

	return cmd
}
