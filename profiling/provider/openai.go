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
	"github.com/openai/openai-go/responses"
)

// OpenAIOptions configures an OpenAI-compatible Responses API backend.
type OpenAIOptions struct {
	// BaseURL overrides the API root (empty keeps the SDK default / OPENAI_BASE_URL).
	BaseURL string
	APIKey  string
	Model   string

	Timeout         time.Duration
	MaxOutputTokens int64

	HTTPClient *http.Client
}

// OpenAIResponses sends prompts through the Responses API. When the request carries a
// schema, the output is constrained with a strict json_schema text format.
type OpenAIResponses struct {
	client          openai.Client
	model           string
	timeout         time.Duration
	maxOutputTokens int64
}

func NewOpenAIResponses(opts OpenAIOptions) *OpenAIResponses {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	maxOut := opts.MaxOutputTokens
	if maxOut <= 0 {
		maxOut = 2000
	}

	reqOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &OpenAIResponses{
		client:          openai.NewClient(reqOpts...),
		model:           opts.Model,
		timeout:         timeout,
		maxOutputTokens: maxOut,
	}
}

func (o *OpenAIResponses) Generate(ctx context.Context, req Request) (string, error) {
	if o == nil {
		return "", errors.New("OpenAIResponses.Generate: backend is nil")
	}
	if o.model == "" {
		return "", errors.New("OpenAIResponses.Generate: model is empty")
	}

	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	input := []responses.ResponseInputItemUnionParam{
		responses.ResponseInputItemParamOfMessage(req.Prompt, responses.EasyInputMessageRoleUser),
	}
	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(o.maxOutputTokens),
		Temperature:     openai.Float(req.Temperature),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
	}
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "Output"
		}
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   name,
					Schema: req.Schema,
					Strict: openai.Bool(true),
					Type:   "json_schema",
				},
			},
		}
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("OpenAIResponses.Generate: %w", err)
	}
	return resp.OutputText(), nil
}
