package profiling

import (
	"encoding/json"
	"fmt"
)

const profilePromptTemplate = `
You are a JSON-only extractor.
Analyze this ChatGPT conversation data to infer a user profile.
Respond ONLY with valid JSON. No explanations, no text outside the JSON.

USER MESSAGES:
%s

CONVERSATION TITLES:
%s

Return JSON ONLY in this format:
{
  "identityTraits": {
    "name": "string or Unknown",
    "age": "string or Unknown",
    "location": "string or Unknown",
    "profession": "string inferred",
    "personality": ["3-4 adjectives"]
  },
  "preferences": {
    "topics": ["5-8 topics"],
    "communication_style": "formal/casual/technical/conversational",
    "learning_style": "hands-on/theoretical/visual/example-based"
  },
  "interests": ["6-10 interests"],
  "factualMemory": {
    "projects": ["list if any"],
    "skills": ["list if any"],
    "tools": ["list if any"],
    "experiences": ["list if any"]
  }
}
`

const structurePromptTemplate = `
Look at this JSON data sample and tell me how to extract user conversations and messages.

JSON SAMPLE:
%s

Respond with ONLY a JSON object that tells me:
1. Is this a list or dict at the root?
2. Where are the conversations stored?
3. Where are the user messages within each conversation?
4. What field contains the message content?
5. How to identify user vs assistant messages?

Format:
{
  "root_type": "list" or "dict",
  "conversation_path": "path to conversations",
  "message_path": "path to messages within conversation",
  "content_field": "field name for message content",
  "user_role_identifier": "value that identifies user messages"
}
`

// BuildProfilePrompt renders the profile-extraction prompt for a sample.
func BuildProfilePrompt(s Sample) string {
	titles := s.Titles
	if titles == nil {
		titles = []string{}
	}
	b, err := json.MarshalIndent(titles, "", "  ")
	if err != nil {
		b = []byte("[]")
	}
	return fmt.Sprintf(profilePromptTemplate, s.Text, string(b))
}

// BuildStructurePrompt renders the layout-sniffing prompt for an export excerpt.
func BuildStructurePrompt(sample string) string {
	return fmt.Sprintf(structurePromptTemplate, sample)
}
