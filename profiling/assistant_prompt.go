package profiling

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

const claudePromptTmpl = `I'd like you to act as my personalized AI assistant. Here's my profile to help you provide the most relevant and useful responses:

## Professional Background
- **Role:** {{.Role}}
- **Location:** {{.Location}}
- **Expertise:** {{.Expertise}}

## Communication & Learning Style
- **Preferred Communication:** {{.Communication}}
- **Learning Style:** {{.Learning}}
- **Work Approach:** {{.WorkStyle}}

## Current Context
- **Active Projects:** {{.Projects}}
- **Tools & Environment:** {{.Tools}}
- **Key Constraints:** {{.Constraints}}

## Primary Interests & Focus Areas
{{range .Interests}}• {{.}}
{{end}}
## Typical Questions I Ask
{{.Questions}}

Please keep this context in mind for all our interactions. I appreciate responses that are practical, actionable, and aligned with my technical background and current projects. Feel free to reference my tools and expertise when providing solutions.
`

const geminiPromptTmpl = `**System Prompt - User Profile Context**

You're assisting a professional with the following background. Tailor your responses accordingly:

**Professional Identity:**
• Role: {{.Role}}
• Location: {{.Location}}
• Core Expertise: {{.Expertise}}

**Communication Preferences:**
• Style: {{.Communication}}
• Learning: {{.Learning}}
• Work Methodology: {{.WorkStyle}}

**Current Focus:**
• Projects: {{.Projects}}
• Technical Stack: {{.Tools}}
• Constraints: {{.Constraints}}

**Domain Interests:**
{{range .Interests}}→ {{.}}
{{end}}
**Context:** {{.Questions}}

Provide responses that leverage my existing knowledge, reference familiar tools, and offer solutions I can implement immediately. Prioritize practical, hands-on approaches that fit my workflow.
`

const chatgptPromptTmpl = `Please treat me as a {{.Role}} located in {{.Location}} with expertise in {{.Expertise}}.

My communication style is {{lower .Communication}} and I learn best through {{lower .Learning}}. I follow a {{lower .WorkStyle}} approach to work.

Current projects: {{.Projects}}

My technical environment includes: {{.Tools}}

Important constraints to consider: {{.Constraints}}

Key areas of interest:
{{range $i, $interest := .Interests}}{{inc $i}}. {{$interest}}
{{end}}
I typically ask questions about: {{.Questions}}

When responding, please:
- Reference my existing expertise and tools
- Provide practical, immediately actionable advice
- Consider my time constraints and work style
- Offer examples relevant to my interests and projects
- Assume familiarity with my technical background

This context should guide all our future conversations in this session.
`

const llamaPromptTmpl = `System: You are assisting a {{.Role}} based in {{.Location}}.

User Profile:
- Expertise: {{.Expertise}}
- Projects: {{.Projects}}
- Tools: {{.Tools}}
- Constraints: {{.Constraints}}
- Communication Style: {{.Communication}}
- Learning Style: {{.Learning}}
- Work Style: {{.WorkStyle}}

Interest Areas:
{{range .Interests}}• {{.}}
{{end}}
Query Context: {{.Questions}}

Provide responses that are technical, practical, and directly applicable to the user's environment and expertise level.
`

const genericPromptTmpl = `Here is the extracted user profile:

{{json .}}

Please use this information to personalize your responses.
`

var assistantPrompts = template.Must(parseAssistantPrompts())

func parseAssistantPrompts() (*template.Template, error) {
	root := template.New("assistant").Funcs(template.FuncMap{
		"lower": strings.ToLower,
		"inc":   func(i int) int { return i + 1 },
		"json": func(v any) (string, error) {
			b, err := json.MarshalIndent(v, "", "  ")
			return string(b), err
		},
	})
	for name, body := range map[string]string{
		"claude":  claudePromptTmpl,
		"gemini":  geminiPromptTmpl,
		"chatgpt": chatgptPromptTmpl,
		"llama":   llamaPromptTmpl,
		"generic": genericPromptTmpl,
	} {
		if _, err := root.New(name).Parse(body); err != nil {
			return nil, fmt.Errorf("parse %s prompt: %w", name, err)
		}
	}
	return root, nil
}

// AssistantTargets lists the assistants RenderAssistantPrompt can write for.
func AssistantTargets() []string {
	var out []string
	for _, t := range assistantPrompts.Templates() {
		if t.Name() != "assistant" {
			out = append(out, t.Name())
		}
	}
	sort.Strings(out)
	return out
}

// RenderAssistantPrompt writes a system prompt that introduces the card's owner to target.
func RenderAssistantPrompt(card MemoryCard, target string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(target))
	t := assistantPrompts.Lookup(name)
	if t == nil || name == "assistant" {
		return "", fmt.Errorf("unknown assistant target %q (want one of %s)", target, strings.Join(AssistantTargets(), ", "))
	}
	if card.Interests == nil {
		card.Interests = []string{}
	}
	var sb strings.Builder
	if err := t.Execute(&sb, card); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return sb.String(), nil
}
