package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sydlexius/cytherea/internal/app"
)

func runCmd(g *globals) *cobra.Command {
	var seeds []string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Merge, discover, merge again and enrich",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				sum, err := a.Run(ctx, seeds)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"canonical":  len(sum.Merge.Records),
					"accepted":   len(sum.Discovery.Accepted),
					"rejected":   len(sum.Discovery.Rejected),
					"collisions": sum.Merge.Collisions,
					"dropped":    sum.Merge.Dropped,
					"enrich":     sum.Enrich,
				})
			})
		},
	}
	cmd.Flags().StringSliceVar(&seeds, "seed", nil, "artist to start discovery from (repeatable)")
	return cmd
}

func discoverCmd(g *globals) *cobra.Command {
	var seeds []string
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find new artists through similarity providers",
		Long: `Walks the similarity graph breadth first from the given seeds (or the
configured ones, or the whole canonical set). Accepted candidates are kept
in the discovery checkpoint until the next merge.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Discover(ctx, seeds)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringSliceVar(&seeds, "seed", nil, "artist to start from (repeatable)")
	return cmd
}

func enrichCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Fill missing birth dates and media references",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				stats, err := a.Enrich(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stats)
			})
		},
	}
}

func verifyCmd(g *globals) *cobra.Command {
	var resume bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Audit stored genres against the authority",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				rep, err := a.Verify(ctx, resume)
				if err != nil {
					return err
				}
				counts := rep.Counts()
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "run %s: ok=%d missing=%d extra=%d not_found=%d skipped=%d\nreport: %s\n",
					rep.RunID, counts["ok"], counts["missing"], counts["extra"], counts["not_found"], rep.Skipped,
					a.Config.Data.VerifyReport)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&resume, "resume", false, "continue an interrupted run from its checkpoint")
	return cmd
}

func mergeCmd(g *globals) *cobra.Command {
	var opts app.MergeOptions
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge seed, snapshot and pending candidates into the canonical set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Merge(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"canonical":  len(res.Records),
					"collisions": res.Collisions,
					"excluded":   res.Excluded,
					"dropped":    res.Dropped,
				})
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Reclassify, "reclassify", false, "recompute genres from retained raw tags")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report without writing")
	return cmd
}

func reindexCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the query index from the snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Reindex(ctx, nil)
			})
		},
	}
}
