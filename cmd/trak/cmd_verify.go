package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trakvc/trak/pkg/repo"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify object store integrity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			report, err := r.Store.Verify()
			if err != nil {
				return err
			}

			fmt.Fprintf(
				cmd.OutOrStdout(),
				"ok: verified %d object(s) (%d blob(s), %d commit(s))\n",
				report.Objects,
				report.Blobs,
				report.Commits,
			)
			return nil
		},
	}
}
