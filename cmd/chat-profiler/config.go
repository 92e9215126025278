package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/theimaginaryfoundation/chat-profiler/profiling"
	"github.com/theimaginaryfoundation/chat-profiler/profiling/provider"
)

const (
	backendOllama = "ollama"
	backendOpenAI = "openai"
	backendNone   = "none"

	defaultOllamaModel = "llama3.2:3b"
	defaultOpenAIModel = "gpt-4o-mini"
)

type Config struct {
	Backend         string `toml:"backend" validate:"oneof=ollama openai none"`
	Endpoint        string `toml:"endpoint" validate:"omitempty,url"`
	Model           string `toml:"model" validate:"required_unless=Backend none"`
	APIKey          string `toml:"api_key"`
	TimeoutSeconds  int    `toml:"timeout_seconds" validate:"gt=0"`
	MaxOutputTokens int64  `toml:"max_output_tokens" validate:"gte=0"`

	StructuredOutput     bool    `toml:"structured_output"`
	Sniff                bool    `toml:"sniff"`
	InferenceTemperature float64 `toml:"inference_temperature" validate:"gte=0,lte=2"`
	SniffTemperature     float64 `toml:"sniff_temperature" validate:"gte=0,lte=2"`

	MaxConversations int `toml:"max_conversations" validate:"gte=0"`
	SampleMessages   int `toml:"sample_messages" validate:"gte=0"`
	SampleChars      int `toml:"sample_chars" validate:"gte=0"`
	SampleTitles     int `toml:"sample_titles" validate:"gte=0"`

	Vocabulary profiling.Vocabulary `toml:"vocabulary"`
}

func defaultConfig() Config {
	return Config{
		Backend:              backendOllama,
		TimeoutSeconds:       int(provider.DefaultTimeout / time.Second),
		Sniff:                true,
		InferenceTemperature: profiling.DefaultInferenceTemperature,
		SniffTemperature:     profiling.DefaultSniffTemperature,
		MaxConversations:     profiling.DefaultMaxConversations,
		SampleMessages:       profiling.DefaultSampleMessages,
		SampleChars:          profiling.DefaultSampleChars,
		SampleTitles:         profiling.DefaultSampleTitles,
		Vocabulary:           profiling.DefaultVocabulary(),
	}
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Backend == backendOpenAI && c.APIKey == "" {
		return errors.New("missing OPENAI_API_KEY (or set api_key) for the openai backend")
	}
	return nil
}

// defaultConfigPath is used when --config is not given; a missing file there is fine.
func defaultConfigPath(getenv func(string) string) string {
	if dir := getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "chat-profiler", "config.toml")
	}
	if home := getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", "chat-profiler", "config.toml")
	}
	return ""
}

// loadConfigFile overlays a TOML file onto cfg. Unknown keys are rejected.
func loadConfigFile(cfg *Config, path string) error {
	defaultRules := cfg.Vocabulary.Professions
	cfg.Vocabulary.Professions = nil

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		cfg.Vocabulary.Professions = defaultRules
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if !md.IsDefined("vocabulary", "professions") {
		cfg.Vocabulary.Professions = defaultRules
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("parse config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// applyEnv overlays environment variables (after .env has been loaded).
func applyEnv(cfg *Config, getenv func(string) string) {
	if v := strings.TrimSpace(getenv("CHAT_PROFILER_BACKEND")); v != "" {
		cfg.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv("CHAT_PROFILER_ENDPOINT")); v != "" {
		cfg.Endpoint = v
	}
	if v := strings.TrimSpace(getenv("CHAT_PROFILER_MODEL")); v != "" {
		cfg.Model = v
	}
	if cfg.APIKey == "" {
		cfg.APIKey = strings.TrimSpace(getenv("OPENAI_API_KEY"))
	}
}

// resolveDefaults fills backend-dependent defaults.
func (c *Config) resolveDefaults() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Model == "" {
		switch c.Backend {
		case backendOllama:
			c.Model = defaultOllamaModel
		case backendOpenAI:
			c.Model = defaultOpenAIModel
		}
	}
	if c.Endpoint == "" && c.Backend == backendOllama {
		c.Endpoint = provider.DefaultOllamaBaseURL
	}
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// newGenerator returns nil for the "none" backend.
func (c Config) newGenerator() provider.Generator {
	switch c.Backend {
	case backendOllama:
		return provider.NewOllama(provider.OllamaOptions{
			BaseURL: c.Endpoint,
			Model:   c.Model,
			Timeout: c.timeout(),
		})
	case backendOpenAI:
		return provider.NewOpenAIResponses(provider.OpenAIOptions{
			BaseURL:         c.Endpoint,
			APIKey:          c.APIKey,
			Model:           c.Model,
			Timeout:         c.timeout(),
			MaxOutputTokens: c.MaxOutputTokens,
		})
	default:
		return nil
	}
}

func (c Config) newPipeline(logger *slog.Logger) *profiling.Pipeline {
	gen := c.newGenerator()

	var sniffer profiling.StructureSniffer = profiling.StaticStructure(profiling.ChatGPTStructure())
	if gen != nil {
		sniffer = profiling.NewModelStructureSniffer(gen, c.SniffTemperature, logger)
	}

	return profiling.NewPipeline(profiling.PipelineConfig{
		Engine: profiling.NewEngine(gen, profiling.EngineOptions{
			Temperature:      c.InferenceTemperature,
			StructuredOutput: c.StructuredOutput,
		}, logger),
		Sniffer:     sniffer,
		Synthesizer: profiling.NewSynthesizer(c.Vocabulary),
		Options: profiling.PipelineOptions{
			Flatten: profiling.FlattenOptions{MaxConversations: c.MaxConversations},
			Sample: profiling.SampleOptions{
				MaxMessages: c.SampleMessages,
				MaxChars:    c.SampleChars,
				MaxTitles:   c.SampleTitles,
			},
			SniffUnknownStructure: c.Sniff,
			StructureSampleChars:  profiling.DefaultStructureSampleChars,
		},
		Logger: logger,
	})
}
