package profiling

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestBuildSample_Limits(t *testing.T) {
	t.Parallel()

	msgs := make([]string, 0, 40)
	for i := range 40 {
		msgs = append(msgs, fmt.Sprintf("message %d", i))
	}
	convs := make([]Conversation, 0, 25)
	for i := range 25 {
		convs = append(convs, Conversation{Title: fmt.Sprintf("title %d", i)})
	}

	s := BuildSample(msgs, convs, DefaultSampleOptions())
	lines := strings.Split(s.Text, "\n")
	assert.Len(t, lines, DefaultSampleMessages)
	assert.Equal(t, "message 0", lines[0])
	assert.Equal(t, "message 29", lines[29])
	assert.Len(t, s.Titles, DefaultSampleTitles)
	assert.Equal(t, "title 19", s.Titles[19])
}

func TestBuildSample_HardCharacterCut(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("ü", 7000)
	s := BuildSample([]string{long, "never reached"}, nil, DefaultSampleOptions())
	assert.Equal(t, DefaultSampleChars, utf8.RuneCountInString(s.Text))
	assert.NotContains(t, s.Text, "never reached")
	assert.NotNil(t, s.Titles)
	assert.Empty(t, s.Titles)
}

func TestBuildSample_ZeroDisablesLimits(t *testing.T) {
	t.Parallel()

	s := BuildSample([]string{"a", "b", "c"}, []Conversation{{Title: "x"}, {Title: "y"}}, SampleOptions{})
	assert.Equal(t, "a\nb\nc", s.Text)
	assert.Equal(t, []string{"x", "y"}, s.Titles)
}

func TestBuildProfilePrompt(t *testing.T) {
	t.Parallel()

	p := BuildProfilePrompt(Sample{Text: "I build APIs in Go", Titles: []string{"Go tips", "Unknown"}})
	assert.Contains(t, p, "You are a JSON-only extractor.")
	assert.Contains(t, p, "USER MESSAGES:\nI build APIs in Go\n")
	assert.Contains(t, p, "[\n  \"Go tips\",\n  \"Unknown\"\n]")
	assert.Contains(t, p, `"personality": ["3-4 adjectives"]`)
	assert.Contains(t, p, `"interests": ["6-10 interests"]`)

	empty := BuildProfilePrompt(Sample{})
	assert.Contains(t, empty, "CONVERSATION TITLES:\n[]\n")
	assert.Equal(t, empty, BuildProfilePrompt(Sample{Titles: []string{}}))
}
