package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/theimaginaryfoundation/chat-profiler/profiling"
)

func (a *app) extractCmd() *cobra.Command {
	var jsonFile string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Profile one export file and print the profile as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			return a.extract(cmd.Context(), cfg.newPipeline(a.logger), jsonFile)
		},
	}
	cmd.Flags().StringVar(&jsonFile, "json-file", "", "Path to a conversations.json export")
	_ = cmd.MarkFlagRequired("json-file")
	return cmd
}

// extract always prints a profile. A file-system error prints the minimal profile and
// exits 1.
func (a *app) extract(ctx context.Context, p *profiling.Pipeline, path string) error {
	prof, extractErr := a.safeExtract(ctx, p, path)
	if extractErr != nil {
		prof = profiling.NewMinimalProfile()
	}

	out, err := prof.Indented()
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("extract: %w", err)}
	}
	if _, err := fmt.Fprintln(a.stdout, string(out)); err != nil {
		return &exitError{code: 1, err: fmt.Errorf("extract: write stdout: %w", err)}
	}

	if extractErr != nil {
		return &exitError{code: 1, err: fmt.Errorf("extract: %w", extractErr)}
	}
	a.logger.Info("profile written", "source", string(prof.Source))
	return nil
}

func (a *app) safeExtract(ctx context.Context, p *profiling.Pipeline, path string) (prof profiling.Profile, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("extraction panicked, using minimal profile", "panic", fmt.Sprint(r))
			prof, err = profiling.NewMinimalProfile(), nil
		}
	}()
	return p.ExtractFile(ctx, path)
}
