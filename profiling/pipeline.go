package profiling

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/tidwall/gjson"
)

// PipelineOptions tunes the single-export pipeline.
type PipelineOptions struct {
	Flatten FlattenOptions
	Sample  SampleOptions

	// SniffUnknownStructure asks the sniffer for a layout when the export does not look
	// like a ChatGPT export.
	SniffUnknownStructure bool

	// StructureSampleChars bounds the excerpt given to the sniffer.
	StructureSampleChars int
}

// DefaultPipelineOptions returns the options used by the CLI.
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		Flatten:               DefaultFlattenOptions(),
		Sample:                DefaultSampleOptions(),
		SniffUnknownStructure: true,
		StructureSampleChars:  DefaultStructureSampleChars,
	}
}

// PipelineConfig wires the pipeline stages. Nil stages get defaults: the ChatGPT layout,
// no model (every inference fails over to the keyword fallback) and the default vocabulary.
type PipelineConfig struct {
	Engine      *Engine
	Sniffer     StructureSniffer
	Synthesizer *Synthesizer
	Options     PipelineOptions
	Logger      *slog.Logger
}

// Pipeline turns one export into one profile.
type Pipeline struct {
	engine  *Engine
	sniffer StructureSniffer
	synth   *Synthesizer
	opts    PipelineOptions
	logger  *slog.Logger
}

// NewPipeline builds a Pipeline from cfg.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	p := &Pipeline{
		engine:  cfg.Engine,
		sniffer: cfg.Sniffer,
		synth:   cfg.Synthesizer,
		opts:    cfg.Options,
		logger:  loggerOrDiscard(cfg.Logger),
	}
	if p.engine == nil {
		p.engine = NewEngine(nil, EngineOptions{}, p.logger)
	}
	if p.sniffer == nil {
		p.sniffer = StaticStructure(ChatGPTStructure())
	}
	if p.synth == nil {
		p.synth = NewSynthesizer(DefaultVocabulary())
	}
	if p.opts.StructureSampleChars <= 0 {
		p.opts.StructureSampleChars = DefaultStructureSampleChars
	}
	return p
}

// ExtractFile reads path and profiles it. Only file-system errors are returned.
func (p *Pipeline) ExtractFile(ctx context.Context, path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read export %s: %w", path, err)
	}
	return p.ExtractBytes(ctx, data), nil
}

// ExtractBytes profiles an in-memory export.
func (p *Pipeline) ExtractBytes(ctx context.Context, data []byte) Profile {
	return p.ProfileFor(ctx, p.FlattenExport(ctx, data))
}

// FlattenExport picks a layout for data and flattens it. A sniffed layout that yields no
// conversations is retried with the ChatGPT walk, first under the sniffed conversation path
// and then at the root.
func (p *Pipeline) FlattenExport(ctx context.Context, data []byte) FlattenResult {
	if !p.opts.SniffUnknownStructure || !gjson.ValidBytes(data) || LooksLikeChatGPTExport(data) {
		return p.flattenWith(data, ChatGPTStructure())
	}

	info := p.sniffer.InferStructure(ctx, StructureSample(data, p.opts.StructureSampleChars))
	candidates := []StructureInfo{info}
	nested := ChatGPTStructure()
	nested.ConversationPath = info.ConversationPath
	for _, c := range []StructureInfo{nested, ChatGPTStructure()} {
		if c != candidates[len(candidates)-1] && c != info {
			candidates = append(candidates, c)
		}
	}

	var res FlattenResult
	for i, c := range candidates {
		if i > 0 {
			p.logger.Info("sniffed layout found no conversations, retrying with ChatGPT layout",
				"conversation_path", c.ConversationPath)
		}
		res = p.flattenWith(data, c)
		if len(res.Conversations) > 0 {
			break
		}
	}
	return res
}

func (p *Pipeline) flattenWith(data []byte, info StructureInfo) FlattenResult {
	res := Flatten(data, info, p.opts.Flatten)
	p.logger.Info("flattened export",
		"conversations", len(res.Conversations),
		"user_messages", len(res.UserMessages),
	)
	return res
}

// ProfileFor produces the profile for flattened data: the minimal profile without user
// messages, otherwise the model's answer or, failing that, the keyword fallback.
func (p *Pipeline) ProfileFor(ctx context.Context, res FlattenResult) Profile {
	if len(res.UserMessages) == 0 {
		p.logger.Info("no user messages, using minimal profile")
		return NewMinimalProfile()
	}

	sample := BuildSample(res.UserMessages, res.Conversations, p.opts.Sample)
	result := p.engine.Infer(ctx, sample)
	if result.OK() {
		p.logger.Info("profile inferred by model")
		return result.Profile
	}

	p.logger.Warn("model inference failed, using keyword fallback", "reason", result.Reason)
	return NewProfile(p.synth.Synthesize(res.UserMessages, res.Conversations), SourceKeywordFallback)
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
