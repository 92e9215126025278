package profiling

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const unknownValue = "Unknown"

// UserProfile is the canonical profile shape produced by the inference engine and the
// keyword fallback.
type UserProfile struct {
	IdentityTraits IdentityTraits `json:"identityTraits"`
	Preferences    Preferences    `json:"preferences"`
	Interests      []string       `json:"interests"`
	FactualMemory  FactualMemory  `json:"factualMemory"`
}

// IdentityTraits describes who the user appears to be.
type IdentityTraits struct {
	Name       string `json:"name"`
	Age        string `json:"age"`
	Location   string `json:"location"`
	Profession string `json:"profession"`

	// Personality is a handful of adjectives.
	Personality []string `json:"personality"`
}

// Preferences describes how the user likes to interact.
type Preferences struct {
	Topics             []string `json:"topics"`
	CommunicationStyle string   `json:"communication_style"`
	LearningStyle      string   `json:"learning_style"`
}

// FactualMemory holds concrete facts worth remembering about the user.
type FactualMemory struct {
	Projects    []string `json:"projects"`
	Skills      []string `json:"skills"`
	Tools       []string `json:"tools"`
	Experiences []string `json:"experiences"`
}

// normalized replaces nil slices with empty ones so every field serializes as an array.
func (u UserProfile) normalized() UserProfile {
	u.IdentityTraits.Personality = nonNil(u.IdentityTraits.Personality)
	u.Preferences.Topics = nonNil(u.Preferences.Topics)
	u.Interests = nonNil(u.Interests)
	u.FactualMemory.Projects = nonNil(u.FactualMemory.Projects)
	u.FactualMemory.Skills = nonNil(u.FactualMemory.Skills)
	u.FactualMemory.Tools = nonNil(u.FactualMemory.Tools)
	u.FactualMemory.Experiences = nonNil(u.FactualMemory.Experiences)
	return u
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// MinimalProfile is returned when there is nothing to analyze: no user messages, an
// unreadable file, or an unexpected failure.
func MinimalProfile() UserProfile {
	return UserProfile{
		IdentityTraits: IdentityTraits{
			Name:        unknownValue,
			Age:         unknownValue,
			Location:    unknownValue,
			Profession:  unknownValue,
			Personality: []string{"curious", "inquisitive"},
		},
		Preferences: Preferences{
			Topics:             []string{"General Knowledge", "Technology"},
			CommunicationStyle: "conversational",
			LearningStyle:      "exploratory",
		},
		Interests: []string{"Learning", "Technology"},
		FactualMemory: FactualMemory{
			Projects:    []string{},
			Skills:      []string{"Critical Thinking"},
			Tools:       []string{},
			Experiences: []string{},
		},
	}
}

// ProfileSource records which path produced a profile.
type ProfileSource string

const (
	SourceModel           ProfileSource = "model"
	SourceKeywordFallback ProfileSource = "keyword_fallback"
	SourceMinimalFallback ProfileSource = "minimal_fallback"
)

// Profile is an output document: the serialized profile plus where it came from.
// A model-produced profile keeps the model's JSON as-is, including any extra keys.
type Profile struct {
	Source ProfileSource
	raw    json.RawMessage
}

// NewProfile serializes a structured profile.
func NewProfile(p UserProfile, source ProfileSource) Profile {
	b, err := json.Marshal(p.normalized())
	if err != nil {
		// UserProfile contains only strings and string slices.
		panic(fmt.Sprintf("marshal profile: %v", err))
	}
	return Profile{Source: source, raw: b}
}

// NewMinimalProfile wraps MinimalProfile.
func NewMinimalProfile() Profile {
	return NewProfile(MinimalProfile(), SourceMinimalFallback)
}

func modelProfile(compact []byte) Profile {
	return Profile{Source: SourceModel, raw: append(json.RawMessage(nil), compact...)}
}

// MarshalJSON returns the profile document exactly.
func (p Profile) MarshalJSON() ([]byte, error) {
	if len(p.raw) == 0 {
		return NewMinimalProfile().raw, nil
	}
	return p.raw, nil
}

// Indented returns the profile formatted with two-space indentation.
func (p Profile) Indented() ([]byte, error) {
	raw, _ := p.MarshalJSON()
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("indent profile: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses the document into the canonical shape. Model profiles may not match the
// shape exactly; mismatched fields produce an error.
func (p Profile) Decode() (UserProfile, error) {
	raw, _ := p.MarshalJSON()
	var out UserProfile
	if err := json.Unmarshal(raw, &out); err != nil {
		return UserProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	return out, nil
}
