package profiling

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Synthesizer builds a profile from keyword matches when no model answer is usable.
// It is pure: the same inputs always give the same profile.
type Synthesizer struct {
	vocab Vocabulary
}

// NewSynthesizer copies v; later changes to v do not affect the Synthesizer.
func NewSynthesizer(v Vocabulary) *Synthesizer {
	return &Synthesizer{vocab: v.clone()}
}

// Synthesize returns MinimalProfile when there are no user messages, otherwise a profile
// derived from vocabulary hits in the messages and conversation titles.
func (s *Synthesizer) Synthesize(userMessages []string, conversations []Conversation) UserProfile {
	if len(userMessages) == 0 {
		return MinimalProfile()
	}

	allText := strings.ToLower(strings.Join(userMessages, " "))
	titles := make([]string, 0, len(conversations))
	for _, c := range conversations {
		titles = append(titles, c.Title)
	}
	allTitles := strings.ToLower(strings.Join(titles, " "))

	// cases.Caser is stateful, so one per call.
	title := cases.Title(language.Und)

	var found []string
	for _, kw := range s.vocab.keywords() {
		if strings.Contains(allText, kw) || strings.Contains(allTitles, kw) {
			found = append(found, title.String(kw))
		}
	}
	interests := limitStrings(dedupeStrings(found), s.vocab.MaxInterests)

	var tools []string
	for _, kw := range s.vocab.Technology {
		if strings.Contains(allText, kw) {
			tools = append(tools, title.String(kw))
		}
	}
	tools = limitStrings(dedupeStrings(tools), s.vocab.MaxTools)

	topics := []string{"Technology", "Programming"}
	skills := []string{"Problem Solving"}
	if len(interests) > 0 {
		topics = limitStrings(interests, s.vocab.MaxTopics)
		skills = limitStrings(interests, s.vocab.MaxSkills)
	} else {
		interests = []string{"Web Development", "Technology"}
	}

	return UserProfile{
		IdentityTraits: IdentityTraits{
			Name:        unknownValue,
			Age:         unknownValue,
			Location:    unknownValue,
			Profession:  s.profession(allText),
			Personality: []string{"curious", "analytical", "problem-solver"},
		},
		Preferences: Preferences{
			Topics:             topics,
			CommunicationStyle: "conversational",
			LearningStyle:      "hands-on",
		},
		Interests: interests,
		FactualMemory: FactualMemory{
			Projects:    []string{},
			Skills:      skills,
			Tools:       nonNil(tools),
			Experiences: []string{},
		},
	}
}

func (s *Synthesizer) profession(allText string) string {
	for _, rule := range s.vocab.Professions {
		for _, term := range rule.Terms {
			if strings.Contains(allText, term) {
				return rule.Profession
			}
		}
	}
	return unknownValue
}

// limitStrings returns a copy of at most max leading items. max <= 0 keeps everything.
func limitStrings(in []string, max int) []string {
	n := len(in)
	if max > 0 && n > max {
		n = max
	}
	return append([]string{}, in[:n]...)
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
