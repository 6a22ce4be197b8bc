package ctl

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newMigrateCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer comp.Close()

			if err := comp.RepoManager.RunMigrations(cmd.Context(), comp.DB); err != nil {
				return fmt.Errorf("migrations failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓"), "schema is up to date")
			return nil
		},
	}
}
