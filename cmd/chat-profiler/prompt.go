package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/theimaginaryfoundation/chat-profiler/profiling"
	"github.com/tidwall/gjson"
)

func (a *app) promptCmd() *cobra.Command {
	var profilePath, target string
	var index int
	var cardOnly bool
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Render an assistant system prompt from a saved profile",
		Long: "Render an assistant system prompt from a saved profile.\n\n" +
			"--profile accepts the output of extract or aggregate; for an array use --index.\n" +
			"Targets: " + strings.Join(profiling.AssistantTargets(), ", "),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			card, err := loadMemoryCard(profilePath, index)
			if err != nil {
				return &exitError{code: 1, err: fmt.Errorf("prompt: %w", err)}
			}
			if cardOnly {
				b, err := json.MarshalIndent(card, "", "  ")
				if err != nil {
					return &exitError{code: 1, err: fmt.Errorf("prompt: %w", err)}
				}
				fmt.Fprintln(a.stdout, string(b))
				return nil
			}
			out, err := profiling.RenderAssistantPrompt(card, target)
			if err != nil {
				return err
			}
			fmt.Fprint(a.stdout, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&profilePath, "profile", "", "Profile JSON file (from extract or aggregate)")
	cmd.Flags().StringVar(&target, "target", "claude", "Assistant to write the prompt for")
	cmd.Flags().IntVar(&index, "index", 0, "Profile to use when the file holds an array")
	cmd.Flags().BoolVar(&cardOnly, "card", false, "Print the memory card JSON instead of a prompt")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func loadMemoryCard(path string, index int) (profiling.MemoryCard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return profiling.MemoryCard{}, fmt.Errorf("read profile: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return profiling.MemoryCard{}, fmt.Errorf("profile %s is not valid JSON", path)
	}
	doc := gjson.ParseBytes(data)
	if doc.IsArray() {
		n := len(doc.Array())
		if index < 0 || index >= n {
			return profiling.MemoryCard{}, fmt.Errorf("profile index %d out of range (file holds %d)", index, n)
		}
		doc = doc.Get(strconv.Itoa(index))
	}
	if !doc.IsObject() {
		return profiling.MemoryCard{}, fmt.Errorf("profile %s does not hold a JSON object", path)
	}
	return profiling.MemoryCardFromJSON([]byte(doc.Raw)), nil
}
