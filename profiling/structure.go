package profiling

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/theimaginaryfoundation/chat-profiler/profiling/fileutils"
	"github.com/theimaginaryfoundation/chat-profiler/profiling/provider"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

const (
	defaultMessagePath = "mapping"

	// DefaultStructureSampleChars bounds the export excerpt shown to the sniffer.
	DefaultStructureSampleChars = 3000

	// DefaultSniffTemperature keeps structure answers close to deterministic.
	DefaultSniffTemperature = 0.1
)

// StructureInfo says where conversations, messages and message text live in an export.
type StructureInfo struct {
	RootType           string `json:"root_type"`
	ConversationPath   string `json:"conversation_path"`
	MessagePath        string `json:"message_path"`
	ContentField       string `json:"content_field"`
	UserRoleIdentifier string `json:"user_role_identifier"`
}

// ChatGPTStructure is the layout of a ChatGPT conversations.json export.
func ChatGPTStructure() StructureInfo {
	return StructureInfo{
		RootType:           "list",
		ConversationPath:   "direct",
		MessagePath:        defaultMessagePath,
		ContentField:       "parts",
		UserRoleIdentifier: RoleUser,
	}
}

func (s StructureInfo) withDefaults() StructureInfo {
	def := ChatGPTStructure()
	if strings.TrimSpace(s.RootType) == "" {
		s.RootType = def.RootType
	}
	if strings.TrimSpace(s.ConversationPath) == "" {
		s.ConversationPath = def.ConversationPath
	}
	if strings.TrimSpace(s.MessagePath) == "" {
		s.MessagePath = def.MessagePath
	}
	if strings.TrimSpace(s.ContentField) == "" {
		s.ContentField = def.ContentField
	}
	if strings.TrimSpace(s.UserRoleIdentifier) == "" {
		s.UserRoleIdentifier = def.UserRoleIdentifier
	}
	return s
}

// StructureSniffer decides how to read an export from a sample of it.
// Implementations always return a usable StructureInfo.
type StructureSniffer interface {
	InferStructure(ctx context.Context, sample string) StructureInfo
}

// StaticStructure is a StructureSniffer that always answers with the same layout.
type StaticStructure StructureInfo

func (s StaticStructure) InferStructure(context.Context, string) StructureInfo {
	return StructureInfo(s).withDefaults()
}

// ModelStructureSniffer asks a language model to describe the export layout.
type ModelStructureSniffer struct {
	gen         provider.Generator
	temperature float64
	logger      *slog.Logger
}

// NewModelStructureSniffer builds a sniffer. A zero temperature uses DefaultSniffTemperature.
func NewModelStructureSniffer(gen provider.Generator, temperature float64, logger *slog.Logger) *ModelStructureSniffer {
	if temperature <= 0 {
		temperature = DefaultSniffTemperature
	}
	return &ModelStructureSniffer{gen: gen, temperature: temperature, logger: loggerOrDiscard(logger)}
}

func (s *ModelStructureSniffer) InferStructure(ctx context.Context, sample string) StructureInfo {
	fallback := ChatGPTStructure()
	if s == nil || s.gen == nil {
		return fallback
	}

	out, err := s.gen.Generate(ctx, provider.Request{
		Prompt:      BuildStructurePrompt(sample),
		Temperature: s.temperature,
	})
	if err != nil {
		s.logger.Warn("structure sniffing failed, using default layout", "error", err)
		return fallback
	}

	var raw map[string]any
	if err := fileutils.DecodeModelJSON(out, &raw); err != nil {
		s.logger.Warn("structure sniffing returned no usable JSON, using default layout", "error", err)
		return fallback
	}

	info := StructureInfo{
		RootType:           stringField(raw, "root_type"),
		ConversationPath:   stringField(raw, "conversation_path"),
		MessagePath:        stringField(raw, "message_path"),
		ContentField:       stringField(raw, "content_field"),
		UserRoleIdentifier: stringField(raw, "user_role_identifier"),
	}.withDefaults()
	s.logger.Debug("structure sniffed", "structure", fmt.Sprintf("%+v", info))
	return info
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

// StructureSample returns a pretty-printed excerpt of an export: the first two entries when
// the root is an array, otherwise the whole document. The result is cut to maxChars runes.
func StructureSample(data []byte, maxChars int) string {
	if !gjson.ValidBytes(data) {
		return fileutils.TruncateRunes(string(data), maxChars)
	}
	root := gjson.ParseBytes(data)

	raw := root.Raw
	if root.IsArray() {
		parts := make([]string, 0, 2)
		root.ForEach(func(_, v gjson.Result) bool {
			parts = append(parts, v.Raw)
			return len(parts) < 2
		})
		raw = "[" + strings.Join(parts, ",") + "]"
	}

	out := strings.TrimSpace(string(pretty.Pretty([]byte(raw))))
	return fileutils.TruncateRunes(out, maxChars)
}
