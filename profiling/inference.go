package profiling

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/theimaginaryfoundation/chat-profiler/profiling/fileutils"
	"github.com/theimaginaryfoundation/chat-profiler/profiling/provider"
	"github.com/xeipuuv/gojsonschema"
)

// DefaultInferenceTemperature is the sampling temperature for profile inference.
const DefaultInferenceTemperature = 0.3

// acceptanceSchema is the minimum a model answer must satisfy to be used.
const acceptanceSchema = `{
  "type": "object",
  "required": ["identityTraits", "preferences"]
}`

var (
	compiledAcceptance = sync.OnceValue(func() *gojsonschema.Schema {
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(acceptanceSchema))
		if err != nil {
			panic(fmt.Sprintf("compile acceptance schema: %v", err))
		}
		return s
	})
	userProfileSchema = sync.OnceValue(provider.GenerateSchema[UserProfile])
)

// InferenceResult is either an accepted model profile or the reason none was produced.
type InferenceResult struct {
	Profile Profile
	Reason  string
	ok      bool
}

// OK reports whether the model produced an acceptable profile.
func (r InferenceResult) OK() bool { return r.ok }

func inferenceSuccess(p Profile) InferenceResult {
	return InferenceResult{Profile: p, ok: true}
}

func inferenceFailure(format string, args ...any) InferenceResult {
	return InferenceResult{Reason: fmt.Sprintf(format, args...)}
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	// Temperature defaults to DefaultInferenceTemperature when zero.
	Temperature float64

	// StructuredOutput sends the UserProfile JSON schema with the request.
	StructuredOutput bool
}

// Engine asks a model for a profile and validates the answer.
type Engine struct {
	gen    provider.Generator
	opts   EngineOptions
	logger *slog.Logger
}

// NewEngine builds an Engine over gen.
func NewEngine(gen provider.Generator, opts EngineOptions, logger *slog.Logger) *Engine {
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultInferenceTemperature
	}
	return &Engine{gen: gen, opts: opts, logger: loggerOrDiscard(logger)}
}

// Infer makes one model call for the sample. It never returns an error: transport problems
// and unusable answers come back as a failed InferenceResult.
func (e *Engine) Infer(ctx context.Context, s Sample) InferenceResult {
	if e == nil || e.gen == nil {
		return inferenceFailure("no model backend configured")
	}

	req := provider.Request{
		Prompt:      BuildProfilePrompt(s),
		Temperature: e.opts.Temperature,
	}
	if e.opts.StructuredOutput {
		req.Schema = userProfileSchema()
		req.SchemaName = "UserProfile"
	}

	e.logger.Debug("requesting profile", "prompt_chars", len(req.Prompt), "titles", len(s.Titles))
	out, err := e.gen.Generate(ctx, req)
	if err != nil {
		return inferenceFailure("model call: %v", err)
	}
	return ParseProfileResponse(out)
}

// ParseProfileResponse extracts the JSON object from raw model output and accepts it when it
// has at least identityTraits and preferences. The accepted object is kept as the model wrote
// it, only whitespace is removed.
func ParseProfileResponse(out string) InferenceResult {
	sub, err := fileutils.ExtractJSONObject(out)
	if err != nil {
		return inferenceFailure("model response: %v", err)
	}
	if !json.Valid([]byte(sub)) {
		return inferenceFailure("model response: extracted span is not valid JSON (len=%d)", len(sub))
	}
	if err := validateProfileDocument(sub); err != nil {
		return inferenceFailure("model response: %v", err)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(sub)); err != nil {
		return inferenceFailure("model response: compact: %v", err)
	}
	return inferenceSuccess(modelProfile(buf.Bytes()))
}

func validateProfileDocument(doc string) error {
	result, err := compiledAcceptance().Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return errors.New("rejected: " + strings.Join(msgs, "; "))
}
