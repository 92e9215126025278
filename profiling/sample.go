package profiling

import (
	"strings"

	"github.com/theimaginaryfoundation/chat-profiler/profiling/fileutils"
)

const (
	DefaultSampleMessages = 30
	DefaultSampleChars    = 6000
	DefaultSampleTitles   = 20
)

// SampleOptions bounds the text sent for profile inference. Zero or negative values disable
// the corresponding limit.
type SampleOptions struct {
	MaxMessages int
	MaxChars    int
	MaxTitles   int
}

// DefaultSampleOptions returns the limits used by the CLI.
func DefaultSampleOptions() SampleOptions {
	return SampleOptions{
		MaxMessages: DefaultSampleMessages,
		MaxChars:    DefaultSampleChars,
		MaxTitles:   DefaultSampleTitles,
	}
}

// Sample is the bounded excerpt of a user's history given to the model.
type Sample struct {
	Text   string
	Titles []string
}

// BuildSample takes the leading user messages and conversation titles. Cuts are hard: no
// summarization or sentence-boundary handling.
func BuildSample(userMessages []string, conversations []Conversation, opts SampleOptions) Sample {
	msgs := userMessages
	if opts.MaxMessages > 0 && len(msgs) > opts.MaxMessages {
		msgs = msgs[:opts.MaxMessages]
	}
	text := fileutils.TruncateRunes(strings.Join(msgs, "\n"), opts.MaxChars)

	n := len(conversations)
	if opts.MaxTitles > 0 && n > opts.MaxTitles {
		n = opts.MaxTitles
	}
	titles := make([]string, 0, n)
	for _, c := range conversations[:n] {
		titles = append(titles, c.Title)
	}
	return Sample{Text: text, Titles: titles}
}
