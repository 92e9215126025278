package profiling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCard() MemoryCard {
	return MemoryCard{
		Role:          "Software Developer",
		Location:      "Lisbon",
		Expertise:     "Go, SQL",
		Communication: "Technical",
		Learning:      "Hands-On",
		WorkStyle:     "Unknown",
		Interests:     []string{"Compilers", "Databases"},
		Questions:     "Questions about Go",
		Projects:      "chat-profiler",
		Tools:         "Docker",
		Constraints:   "No specific constraints mentioned",
	}
}

func TestRenderAssistantPrompt_Targets(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"chatgpt", "claude", "gemini", "generic", "llama"}, AssistantTargets())

	claude, err := RenderAssistantPrompt(testCard(), "claude")
	require.NoError(t, err)
	assert.Contains(t, claude, "- **Role:** Software Developer")
	assert.Contains(t, claude, "• Compilers\n• Databases\n")

	gemini, err := RenderAssistantPrompt(testCard(), "Gemini ")
	require.NoError(t, err)
	assert.Contains(t, gemini, "→ Databases")

	chatgpt, err := RenderAssistantPrompt(testCard(), "chatgpt")
	require.NoError(t, err)
	assert.Contains(t, chatgpt, "My communication style is technical and I learn best through hands-on.")
	assert.Contains(t, chatgpt, "1. Compilers\n2. Databases\n")

	generic, err := RenderAssistantPrompt(testCard(), "generic")
	require.NoError(t, err)
	assert.Contains(t, generic, `"role": "Software Developer"`)
	assert.Contains(t, generic, "Please use this information to personalize your responses.")
}

func TestRenderAssistantPrompt_UnknownTarget(t *testing.T) {
	t.Parallel()

	_, err := RenderAssistantPrompt(testCard(), "clippy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clippy")

	_, err = RenderAssistantPrompt(testCard(), "assistant")
	require.Error(t, err)
}

func TestRenderAssistantPrompt_NilInterests(t *testing.T) {
	t.Parallel()

	card := testCard()
	card.Interests = nil
	out, err := RenderAssistantPrompt(card, "generic")
	require.NoError(t, err)
	assert.Contains(t, out, `"interests": []`)
}
