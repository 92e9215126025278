package profiling

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	RoleUser    = "user"
	RoleUnknown = "unknown"

	// DefaultMaxConversations bounds how many export entries are scanned per file.
	DefaultMaxConversations = 50
)

// Message is one flattened conversation turn.
type Message struct {
	Role       string   `json:"role"`
	Content    string   `json:"content"`
	CreateTime *float64 `json:"create_time,omitempty"`
}

// Conversation is one export entry reduced to its ordered messages.
type Conversation struct {
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// FlattenOptions controls Flatten.
type FlattenOptions struct {
	// MaxConversations caps how many entries of the conversation array are scanned.
	// 0 means unlimited.
	MaxConversations int
}

// DefaultFlattenOptions returns the options used by the CLI.
func DefaultFlattenOptions() FlattenOptions {
	return FlattenOptions{MaxConversations: DefaultMaxConversations}
}

// FlattenResult holds the conversations found in an export and every user message in order.
type FlattenResult struct {
	Conversations []Conversation
	UserMessages  []string
}

// LooksLikeChatGPTExport reports whether data has the ChatGPT export layout: a root array
// with at least one entry carrying a "mapping" object. An empty array counts as the known
// layout.
func LooksLikeChatGPTExport(data []byte) bool {
	if !gjson.ValidBytes(data) {
		return false
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return false
	}
	empty, found := true, false
	root.ForEach(func(_, entry gjson.Result) bool {
		empty = false
		found = entry.Get("mapping").IsObject()
		return !found
	})
	return empty || found
}

// Flatten walks an export and returns its conversations and user messages. It never fails:
// invalid JSON or an unexpected layout yields an empty result.
func Flatten(data []byte, info StructureInfo, opts FlattenOptions) FlattenResult {
	var res FlattenResult
	if !gjson.ValidBytes(data) {
		return res
	}
	info = info.withDefaults()

	convs := resolveConversations(gjson.ParseBytes(data), info)
	if !convs.IsArray() {
		return res
	}

	scanned := 0
	convs.ForEach(func(_, entry gjson.Result) bool {
		if opts.MaxConversations > 0 && scanned >= opts.MaxConversations {
			return false
		}
		scanned++

		conv, ok := flattenConversation(entry, info)
		if !ok {
			return true
		}
		res.Conversations = append(res.Conversations, conv)
		for _, m := range conv.Messages {
			if m.Role == RoleUser {
				res.UserMessages = append(res.UserMessages, m.Content)
			}
		}
		return true
	})
	return res
}

func resolveConversations(root gjson.Result, info StructureInfo) gjson.Result {
	path := strings.TrimSpace(info.ConversationPath)
	switch strings.ToLower(path) {
	case "", "direct", "root", "$", ".":
		return root
	}
	if r := root.Get(path); r.IsArray() {
		return r
	}
	return root
}

func flattenConversation(entry gjson.Result, info StructureInfo) (Conversation, bool) {
	if !entry.IsObject() {
		return Conversation{}, false
	}
	nodes := entry.Get(info.MessagePath)
	if !nodes.IsObject() && info.MessagePath != defaultMessagePath {
		nodes = entry.Get(defaultMessagePath)
	}
	if !nodes.IsObject() {
		return Conversation{}, false
	}

	var msgs []Message
	nodes.ForEach(func(_, node gjson.Result) bool {
		if m, ok := messageFromNode(node, info); ok {
			msgs = append(msgs, m)
		}
		return true
	})
	if len(msgs) == 0 {
		return Conversation{}, false
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return timestampOrZero(msgs[i].CreateTime) < timestampOrZero(msgs[j].CreateTime)
	})

	title := unknownValue
	if t := entry.Get("title"); t.Exists() && t.Type != gjson.Null {
		title = t.String()
	}
	return Conversation{Title: title, Messages: msgs}, true
}

func messageFromNode(node gjson.Result, info StructureInfo) (Message, bool) {
	msg := node.Get("message")
	if !msg.IsObject() {
		return Message{}, false
	}
	content := msg.Get("content")
	if !truthy(content) {
		return Message{}, false
	}
	first := firstPart(content, info.ContentField)
	if !truthy(first) {
		return Message{}, false
	}
	text := strings.TrimSpace(first.String())
	if text == "" {
		return Message{}, false
	}

	role := strings.TrimSpace(msg.Get("author.role").String())
	switch {
	case role == "":
		role = RoleUnknown
	case role == info.UserRoleIdentifier:
		role = RoleUser
	}

	m := Message{Role: role, Content: text}
	if ct := msg.Get("create_time"); ct.Type == gjson.Number {
		v := ct.Float()
		m.CreateTime = &v
	}
	return m, true
}

// firstPart returns the first element of content.<field>, or the field itself when it is a
// plain string.
func firstPart(content gjson.Result, field string) gjson.Result {
	v := content.Get(field)
	switch {
	case v.IsArray():
		return v.Get("0")
	case v.Type == gjson.String:
		return v
	default:
		return gjson.Result{}
	}
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	case gjson.JSON:
		nonEmpty := false
		r.ForEach(func(_, _ gjson.Result) bool {
			nonEmpty = true
			return false
		})
		return nonEmpty
	default:
		return false
	}
}

func timestampOrZero(ts *float64) float64 {
	if ts == nil {
		return 0
	}
	return *ts
}

// maxUnixSeconds is the last second representable in int64 nanoseconds (2262-04-11).
const maxUnixSeconds = math.MaxInt64 / 1e9

// CreateTimeISO8601 formats a unix-seconds timestamp as RFC 3339 UTC. Missing, non-positive
// and out-of-range timestamps give "".
func CreateTimeISO8601(ts *float64) string {
	if ts == nil || *ts <= 0 || *ts >= maxUnixSeconds || math.IsNaN(*ts) {
		return ""
	}
	ns := int64(math.Round(*ts * 1e9))
	return time.Unix(0, ns).UTC().Format(time.RFC3339)
}
