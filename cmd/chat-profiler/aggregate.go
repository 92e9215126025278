package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/theimaginaryfoundation/chat-profiler/profiling"
)

func (a *app) aggregateCmd() *cobra.Command {
	var folder, output string
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Profile every .json export in a folder and save the profiles as a JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			agg := profiling.NewAggregator(cfg.newPipeline(a.logger), a.logger)
			return a.aggregate(cmd.Context(), agg, folder, output)
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "", "Directory containing export files")
	cmd.Flags().StringVar(&output, "output", "user_profiles.json", "Output JSON file")
	_ = cmd.MarkFlagRequired("folder")
	return cmd
}

func (a *app) aggregate(ctx context.Context, agg *profiling.Aggregator, folder, output string) error {
	res, aggErr := agg.AggregateDir(ctx, folder)
	interrupted := errors.Is(aggErr, context.Canceled) || errors.Is(aggErr, context.DeadlineExceeded)
	if aggErr != nil && !interrupted {
		return &exitError{code: 1, err: fmt.Errorf("aggregate: %w", aggErr)}
	}

	if err := profiling.WriteProfiles(output, res.Profiles); err != nil {
		return &exitError{code: 1, err: fmt.Errorf("aggregate: %w", err)}
	}
	a.logger.Info("aggregate finished",
		"files", res.FilesSeen,
		"profiles", len(res.Profiles),
		"skipped", res.Skipped,
	)
	fmt.Fprintf(a.stdout, "Extracted %d profiles and saved to %s\n", len(res.Profiles), output)

	if interrupted {
		return &exitError{code: 1, err: fmt.Errorf("aggregate: stopped early: %w", aggErr)}
	}
	return nil
}
