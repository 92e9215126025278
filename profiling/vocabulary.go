package profiling

import "strings"

const (
	DefaultMaxInterests = 10
	DefaultMaxTopics    = 5
	DefaultMaxSkills    = 5
	DefaultMaxTools     = 5
)

// ProfessionRule maps any of Terms, found in the user's messages, to Profession.
type ProfessionRule struct {
	Profession string   `toml:"profession" validate:"required"`
	Terms      []string `toml:"terms" validate:"min=1,dive,required"`
}

// Vocabulary drives the keyword fallback. Keyword order matters: it is the order interests
// are reported in.
type Vocabulary struct {
	Technology  []string         `toml:"technology"`
	Business    []string         `toml:"business"`
	Design      []string         `toml:"design"`
	Professions []ProfessionRule `toml:"professions" validate:"dive"`

	MaxInterests int `toml:"max_interests" validate:"gte=0"`
	MaxTopics    int `toml:"max_topics" validate:"gte=0"`
	MaxSkills    int `toml:"max_skills" validate:"gte=0"`
	MaxTools     int `toml:"max_tools" validate:"gte=0"`
}

// DefaultVocabulary returns the built-in keyword lists and profession rules.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Technology: []string{
			"javascript", "python", "react", "node", "api", "database", "ai",
			"machine learning", "coding", "programming", "html", "css", "sql",
			"docker", "git", "github", "typescript", "vue", "angular", "express",
			"cloud", "aws", "azure",
		},
		Business: []string{"business", "marketing", "sales", "startup", "finance", "analytics", "strategy"},
		Design:   []string{"design", "ui", "ux", "figma", "creative", "branding"},
		Professions: []ProfessionRule{
			{Profession: "Software Developer", Terms: []string{"javascript", "python", "developer", "coding", "programming"}},
			{Profession: "Designer", Terms: []string{"design", "ui", "ux"}},
			{Profession: "Business Professional", Terms: []string{"business", "marketing"}},
		},
		MaxInterests: DefaultMaxInterests,
		MaxTopics:    DefaultMaxTopics,
		MaxSkills:    DefaultMaxSkills,
		MaxTools:     DefaultMaxTools,
	}
}

// clone returns a deep copy with lower-cased, trimmed terms.
func (v Vocabulary) clone() Vocabulary {
	out := v
	out.Technology = lowerTerms(v.Technology)
	out.Business = lowerTerms(v.Business)
	out.Design = lowerTerms(v.Design)
	out.Professions = make([]ProfessionRule, 0, len(v.Professions))
	for _, r := range v.Professions {
		out.Professions = append(out.Professions, ProfessionRule{
			Profession: strings.TrimSpace(r.Profession),
			Terms:      lowerTerms(r.Terms),
		})
	}
	return out
}

// keywords returns technology, business and design terms in that order.
func (v Vocabulary) keywords() []string {
	out := make([]string, 0, len(v.Technology)+len(v.Business)+len(v.Design))
	out = append(out, v.Technology...)
	out = append(out, v.Business...)
	out = append(out, v.Design...)
	return out
}

func lowerTerms(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
