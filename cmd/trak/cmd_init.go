package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trakvc/trak/pkg/repo"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty trak repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := repo.Init("."); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Initialized empty trak repository in .trak/")
			return nil
		},
	}
}
