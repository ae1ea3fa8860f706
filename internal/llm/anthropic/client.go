// Package anthropic implements llm.Model on the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"buildmycv-backend/internal/llm"
	"buildmycv-backend/internal/shared/telemetry"
)

const (
	providerName     = "anthropic"
	defaultMaxTokens = 8192
)

// Config configures the Anthropic client.
type Config struct {
	APIKey    string
	Model     string
	Timeout   time.Duration
	MaxTokens int64
	// BaseURL overrides the API endpoint, used by tests.
	BaseURL string
}

// Client implements llm.Model using Claude.
type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClient constructs a Claude client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Anthropic")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
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
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}, nil
}

func (c *Client) Provider() string  { return providerName }
func (c *Client) ModelName() string { return c.model }

// Generate sends one Messages call. Claude has no schema-constrained decoding
// here, so the schema travels in the system prompt and the reply is checked
// by the caller.
func (c *Client) Generate(ctx context.Context, req llm.Request) (json.RawMessage, error) {
	if len(req.Safety) > 0 {
		telemetry.Debug("llm.safety.ignored", map[string]any{"provider": providerName, "prompt": req.Name})
	}
	parts, err := llm.InlineDocumentsAsText(ctx, req.Parts, nil)
	if err != nil {
		return nil, err
	}
	prompt, err := llm.JoinText(parts)
	if err != nil {
		return nil, err
	}
	system, err := systemPrompt(req.Schema)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: prompt},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(float64(*req.Temperature))
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, llm.WrapCallError(providerName, err)
	}
	if string(msg.StopReason) == "refusal" {
		return nil, llm.Blocked(providerName, "refusal")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	telemetry.Debug("llm.usage", map[string]any{
		"provider":          providerName,
		"model":             c.model,
		"prompt":            req.Name,
		"prompt_tokens":     msg.Usage.InputTokens,
		"completion_tokens": msg.Usage.OutputTokens,
	})

	out, err := llm.CleanJSON(text.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", providerName, err)
	}
	return out, nil
}

func systemPrompt(schema *llm.Schema) (string, error) {
	base := "Respond with a single JSON object only. Do not wrap it in Markdown."
	if schema == nil {
		return base, nil
	}
	raw, err := json.MarshalIndent(schema.JSONSchema(true), "", "  ")
	if err != nil {
		return "", fmt.Errorf("%s: encode schema: %w", providerName, err)
	}
	return base + " The object must validate against this JSON Schema:\n" + string(raw), nil
}

var _ llm.Model = (*Client)(nil)
