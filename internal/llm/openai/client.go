// Package openai implements llm.Model on OpenAI Chat Completions with a JSON
// schema response format.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"buildmycv-backend/internal/llm"
	"buildmycv-backend/internal/shared/telemetry"
)

const providerName = "openai"

// Config configures the OpenAI client.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	// BaseURL overrides the API endpoint, used by tests and compatible gateways.
	BaseURL string
}

// Client implements llm.Model using OpenAI Chat Completions.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient constructs a new OpenAI client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}, nil
}

func (c *Client) Provider() string  { return providerName }
func (c *Client) ModelName() string { return c.model }

// Generate sends one chat completion. Documents are sent as extracted text and
// safety settings have no OpenAI equivalent.
func (c *Client) Generate(ctx context.Context, req llm.Request) (json.RawMessage, error) {
	if len(req.Safety) > 0 {
		telemetry.Debug("llm.safety.ignored", map[string]any{"provider": providerName, "prompt": req.Name})
	}
	messages, err := BuildMessages(ctx, req)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Messages: openai.F(messages),
		Model:    openai.F(openai.ChatModel(c.model)),
	}
	if req.Schema != nil {
		var schema interface{} = req.Schema.JSONSchema(false)
		params.ResponseFormat = openai.F[openai.ChatCompletionNewParamsResponseFormatUnion](openai.ResponseFormatJSONSchemaParam{
			Type: openai.F(openai.ResponseFormatJSONSchemaTypeJSONSchema),
			JSONSchema: openai.F(openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   openai.F(schemaName(req.Name)),
				Schema: openai.F(schema),
				Strict: openai.F(true),
			}),
		})
	}
	if req.Temperature != nil && supportsTemperature(c.model) {
		params.Temperature = openai.F(float64(*req.Temperature))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, llm.WrapCallError(providerName, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%s: %w: no choices", providerName, llm.ErrEmptyResponse)
	}
	choice := completion.Choices[0]
	if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
		return nil, llm.Blocked(providerName, refusal)
	}
	if string(choice.FinishReason) == "content_filter" {
		return nil, llm.Blocked(providerName, "content_filter")
	}

	telemetry.Debug("llm.usage", map[string]any{
		"provider":          providerName,
		"model":             c.model,
		"prompt":            req.Name,
		"prompt_tokens":     completion.Usage.PromptTokens,
		"completion_tokens": completion.Usage.CompletionTokens,
	})

	out, err := llm.CleanJSON(choice.Message.Content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", providerName, err)
	}
	return out, nil
}

// supportsTemperature is false for reasoning models that only accept the default.
func supportsTemperature(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	for _, prefix := range []string{"gpt-5", "o1", "o3", "o4"} {
		if strings.HasPrefix(m, prefix) {
			return false
		}
	}
	return true
}

func schemaName(name string) string {
	if name == "" {
		return "output"
	}
	return name + "_output"
}

var _ llm.Model = (*Client)(nil)
