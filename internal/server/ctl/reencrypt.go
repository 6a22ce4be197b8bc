package ctl

import (
	"fmt"

	"github.com/dmitrijs2005/securefiles/internal/server/models"
	"github.com/dmitrijs2005/securefiles/internal/server/reencrypt"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newReencryptCmd(open Opener) *cobra.Command {
	var (
		dryRun      bool
		batchSize   int
		concurrency int
		ids         []string
		owner       string
		category    string
	)

	cmd := &cobra.Command{
		Use:   "reencrypt",
		Short: "Re-encrypt files under the current primary key",
		Long: `Re-encrypts every matching file under the primary secret so that fallback
secrets can be retired. Safe to run again after a partial failure.`,
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			filter := models.Filter{IDs: ids, OwnerID: owner}
			if category != "" {
				c, err := models.ParseCategory(category)
				if err != nil {
					return err
				}
				filter.Category = c
			}

			comp, err := open(ctx)
			if err != nil {
				return err
			}
			defer comp.Close()

			job := reencrypt.NewJob(comp.RepoManager.SecureFiles(comp.DB), comp.Files, comp.Logger,
				reencrypt.WithMetrics(comp.Metrics), reencrypt.WithConcurrency(concurrency))

			res, err := job.Run(ctx, reencrypt.Options{Filter: filter, BatchSize: batchSize, DryRun: dryRun})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Found %d matching files\n", res.Matched)
			if dryRun {
				fmt.Fprintf(out, "%s %d files would be re-encrypted\n", color.YellowString("dry run:"), res.Processed)
				return nil
			}

			mark := color.GreenString("✓")
			if res.Failed > 0 {
				mark = color.RedString("✗")
			}
			fmt.Fprintf(out, "%s processed: %d, succeeded: %d, failed: %d\n", mark, res.Processed, res.Succeeded, res.Failed)
			if res.Failed > 0 {
				return fmt.Errorf("%d files failed to re-encrypt; run again to retry", res.Failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list matching files without changing anything")
	cmd.Flags().IntVar(&batchSize, "batch", reencrypt.DefaultBatchSize, "records per batch")
	cmd.Flags().IntVar(&concurrency, "concurrency", reencrypt.DefaultConcurrency, "files re-encrypted in parallel within a batch")
	cmd.Flags().StringSliceVar(&ids, "id", nil, "only these file ids (repeatable or comma-separated)")
	cmd.Flags().StringVar(&owner, "user", "", "only files of this owner")
	cmd.Flags().StringVar(&category, "category", "", "only files of this category (case-insensitive)")

	return cmd
}
