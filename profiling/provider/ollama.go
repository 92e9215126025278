package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"
)

// OllamaOptions configures an Ollama backend.
type OllamaOptions struct {
	// BaseURL is the server root (defaults to DefaultOllamaBaseURL). The generate
	// endpoint is BaseURL + "/api/generate".
	BaseURL string
	Model   string

	// Timeout bounds each call (defaults to DefaultTimeout).
	Timeout time.Duration

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
}

// Ollama calls the native /api/generate endpoint with stream disabled.
// The openai-go client is used purely as an HTTP transport: it builds the request,
// applies the timeout and surfaces non-2xx statuses as *openai.Error.
type Ollama struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
	Format  map[string]any  `json:"format,omitempty"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

func NewOllama(opts OllamaOptions) *Ollama {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultOllamaBaseURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	reqOpts := []option.RequestOption{
		option.WithBaseURL(base + "/"),
		// Ollama ignores auth; setting a placeholder keeps a real OPENAI_API_KEY from the
		// environment off the wire.
		option.WithAPIKey("ollama"),
		option.WithMaxRetries(0),
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &Ollama{
		client:  openai.NewClient(reqOpts...),
		model:   opts.Model,
		timeout: timeout,
	}
}

// Generate posts the prompt and returns the "response" field of the reply.
// Any status other than 200, a body that is not JSON, or a missing "response"
// field is an error.
func (o *Ollama) Generate(ctx context.Context, req Request) (string, error) {
	if o == nil {
		return "", errors.New("Ollama.Generate: backend is nil")
	}
	if o.model == "" {
		return "", errors.New("Ollama.Generate: model is empty")
	}

	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	body := generateRequest{
		Model:   o.model,
		Prompt:  req.Prompt,
		Stream:  false,
		Options: generateOptions{Temperature: req.Temperature},
		Format:  req.Schema,
	}

	var (
		httpResp *http.Response
		raw      []byte
	)
	err := o.client.Post(ctx, "api/generate", body, &raw, option.WithResponseInto(&httpResp))
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("Ollama.Generate: status %d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("Ollama.Generate: %w", err)
	}
	if httpResp != nil && httpResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Ollama.Generate: unexpected status %d", httpResp.StatusCode)
	}
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("Ollama.Generate: response body is not JSON (len=%d)", len(raw))
	}
	out := gjson.GetBytes(raw, "response")
	if !out.Exists() {
		return "", errors.New("Ollama.Generate: response field missing")
	}
	return out.String(), nil
}
