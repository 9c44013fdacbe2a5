package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/trakvc/trak/pkg/repo"
)

func newBranchCmd() *cobra.Command {
	var deleteName string

	cmd := &cobra.Command{
		Use:   "branch <name>",
		Short: "Create a branch at the current commit",
		Args:  cobra.MaximumNArgs(1),
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

			if deleteName != "" {
				if err := r.DeleteBranch(deleteName); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted branch %s\n", deleteName)
				return nil
			}

			if len(args) != 1 {
				return fmt.Errorf("branch name required")
			}
			if err := r.CreateBranch(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created branch %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&deleteName, "delete", "d", "", "delete the named branch")

	return cmd
}

func newListBranchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-branches",
		Short: "List branches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			names, err := r.ListBranches()
			if err != nil {
				return err
			}
			head, err := r.ReadHead()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			current := color.New(color.FgGreen)
			for _, name := range names {
				if head.Branch == name {
					current.Fprintf(out, "* %s\n", name)
				} else {
					fmt.Fprintf(out, "  %s\n", name)
				}
			}
			return nil
		},
	}
}
