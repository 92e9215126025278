// Package provider holds the language-model backends used for structure sniffing and
// profile inference. Backends never retry: callers treat any error as a failed attempt
// and fall back to deterministic output.
package provider

import (
	"context"
	"time"
)

const (
	// DefaultOllamaBaseURL is the local Ollama server.
	DefaultOllamaBaseURL = "http://localhost:11434"

	// DefaultTimeout bounds a single model call.
	DefaultTimeout = 60 * time.Second
)

// Request is one prompt sent to a model.
type Request struct {
	Prompt      string
	Temperature float64

	// Schema, when non-nil, asks the backend for structured output matching this JSON schema.
	Schema     map[string]any
	SchemaName string
}

// Generator turns a prompt into raw model output text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
