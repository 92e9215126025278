package profiling

import (
	"strings"

	"github.com/tidwall/gjson"
)

// MemoryCard is a flat, display-oriented view of a profile used to personalise assistants.
type MemoryCard struct {
	Role          string   `json:"role"`
	Location      string   `json:"location"`
	Expertise     string   `json:"expertise"`
	Communication string   `json:"communication"`
	Learning      string   `json:"learning"`
	WorkStyle     string   `json:"workStyle"`
	Interests     []string `json:"interests"`
	Questions     string   `json:"questions"`
	Projects      string   `json:"projects"`
	Tools         string   `json:"tools"`
	Constraints   string   `json:"constraints"`
}

// ToMemoryCard flattens p into a MemoryCard.
func ToMemoryCard(p Profile) MemoryCard {
	raw, _ := p.MarshalJSON()
	return MemoryCardFromJSON(raw)
}

// MemoryCardFromJSON builds a card from any profile document. Model-written profiles do not
// always follow the schema, so list fields may also be plain strings and anything missing
// becomes "Unknown".
func MemoryCardFromJSON(doc []byte) MemoryCard {
	root := gjson.ParseBytes(doc)

	card := MemoryCard{
		Role:          stringOrUnknown(root.Get("identityTraits.profession")),
		Location:      stringOrUnknown(root.Get("identityTraits.location")),
		Expertise:     joinedOrUnknown(root.Get("factualMemory.skills")),
		Communication: stringOrUnknown(root.Get("preferences.communication_style")),
		Learning:      stringOrUnknown(root.Get("preferences.learning_style")),
		WorkStyle:     unknownValue,
		Interests:     []string{},
		Questions:     "Questions about various topics",
		Projects:      joinedOrUnknown(root.Get("factualMemory.projects")),
		Tools:         joinedOrUnknown(root.Get("factualMemory.tools")),
		Constraints:   "No specific constraints mentioned",
	}

	if interests := root.Get("interests"); interests.IsArray() {
		card.Interests = stringItems(interests)
	}
	if topics := root.Get("preferences.topics"); topics.IsArray() {
		items := stringItems(topics)
		if len(items) > 3 {
			items = items[:3]
		}
		card.Questions = "Questions about " + strings.Join(items, ", ")
	}
	if exp := root.Get("factualMemory.experiences"); exp.IsArray() {
		card.Constraints = "Based on experience with " + strings.Join(stringItems(exp), ", ")
	}
	return card
}

func stringItems(arr gjson.Result) []string {
	out := []string{}
	for _, v := range arr.Array() {
		out = append(out, v.String())
	}
	return out
}

func stringOrUnknown(v gjson.Result) string {
	if s := v.String(); s != "" && v.Type != gjson.JSON {
		return s
	}
	return unknownValue
}

func joinedOrUnknown(v gjson.Result) string {
	if v.IsArray() {
		return strings.Join(stringItems(v), ", ")
	}
	return stringOrUnknown(v)
}
