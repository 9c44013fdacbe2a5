package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/trakvc/trak/pkg/repo"
)

func newCommitCmd() *cobra.Command {
	var message string
	var author string
	var sign bool
	var keyPath string

	cmd := &cobra.Command{
		Use:   "commit -m <message>",
		Short: "Record the staged snapshot as a new commit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return fmt.Errorf("commit message is required (-m)")
			}

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

			if author == "" {
				author = cfg.User.Name
			}
			if author == "" {
				author = os.Getenv("USER")
			}
			if author == "" {
				author = "unknown"
			}

			var signer repo.CommitSigner
			if sign || cfg.Commit.Sign {
				key := keyPath
				if key == "" {
					key = cfg.Commit.KeyPath
				}
				s, resolvedKey, err := newSSHCommitSigner(key)
				if err != nil {
					return err
				}
				signer = s
				fmt.Fprintf(cmd.ErrOrStderr(), "signing with %s\n", resolvedKey)
			}

			h, err := r.CommitWithSigner(message, author, signer)
			if err != nil {
				return err
			}

			branch := "HEAD"
			if head, err := r.ReadHead(); err == nil && head.Attached() {
				branch = head.Branch
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", branch, h.Short(), message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().StringVar(&author, "author", "", "override author (default: config, then $USER)")
	cmd.Flags().BoolVar(&sign, "sign", false, "sign the commit with an SSH key")
	cmd.Flags().StringVar(&keyPath, "key", "", "SSH private key for signing")

	return cmd
}
