package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/theimaginaryfoundation/chat-profiler/profiling"
	"github.com/theimaginaryfoundation/chat-profiler/profiling/fileutils"
)

type flatMessage struct {
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	CreatedAt string   `json:"created_at,omitempty"`
	Time      *float64 `json:"create_time,omitempty"`
}

type flatConversation struct {
	Title    string        `json:"title"`
	Messages []flatMessage `json:"messages"`
}

// flattenCmd shows what the profiler reads from an export, for checking unfamiliar layouts.
func (a *app) flattenCmd() *cobra.Command {
	var jsonFile, output string
	cmd := &cobra.Command{
		Use:   "flatten",
		Short: "Print the conversations and messages read from an export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(jsonFile)
			if err != nil {
				return &exitError{code: 1, err: fmt.Errorf("flatten: %w", err)}
			}

			res := cfg.newPipeline(a.logger).FlattenExport(cmd.Context(), data)
			convs := make([]flatConversation, 0, len(res.Conversations))
			for _, c := range res.Conversations {
				fc := flatConversation{Title: c.Title, Messages: make([]flatMessage, 0, len(c.Messages))}
				for _, m := range c.Messages {
					fc.Messages = append(fc.Messages, flatMessage{
						Role:      m.Role,
						Content:   m.Content,
						CreatedAt: profiling.CreateTimeISO8601(m.CreateTime),
						Time:      m.CreateTime,
					})
				}
				convs = append(convs, fc)
			}

			if output != "" {
				if err := fileutils.WriteJSONFileAtomic(output, convs, true); err != nil {
					return &exitError{code: 1, err: fmt.Errorf("flatten: %w", err)}
				}
				fmt.Fprintf(a.stdout, "Flattened %d conversations (%d user messages) to %s\n", len(convs), len(res.UserMessages), output)
				return nil
			}
			b, err := json.MarshalIndent(convs, "", "  ")
			if err != nil {
				return &exitError{code: 1, err: fmt.Errorf("flatten: %w", err)}
			}
			fmt.Fprintln(a.stdout, string(b))
			return nil
		},
	}
	cmd.Flags().StringVar(&jsonFile, "json-file", "", "Path to an export file")
	cmd.Flags().StringVar(&output, "output", "", "Write to this file instead of stdout")
	_ = cmd.MarkFlagRequired("json-file")
	return cmd
}
