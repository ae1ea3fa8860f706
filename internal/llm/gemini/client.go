// Package gemini implements llm.Model on the Gemini API via google.golang.org/genai.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"buildmycv-backend/internal/extract"
	"buildmycv-backend/internal/llm"
	"buildmycv-backend/internal/shared/telemetry"
)

const providerName = "gemini"

// Config configures the Gemini client.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	// BaseURL overrides the API endpoint, used by tests.
	BaseURL string
}

// Client implements llm.Model.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient constructs a Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Gemini")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{client: client, model: cfg.Model}, nil
}

func (c *Client) Provider() string  { return providerName }
func (c *Client) ModelName() string { return c.model }

// Generate sends one generateContent call with a JSON response schema.
func (c *Client) Generate(ctx context.Context, req llm.Request) (json.RawMessage, error) {
	parts, err := llm.InlineDocumentsAsText(ctx, req.Parts, nativeDocument)
	if err != nil {
		return nil, err
	}
	contents := []*genai.Content{genai.NewContentFromParts(toParts(parts), genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, buildConfig(req))
	if err != nil {
		return nil, llm.WrapCallError(providerName, err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" &&
		resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		return nil, llm.Blocked(providerName, string(resp.PromptFeedback.BlockReason))
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%s: %w: no candidates", providerName, llm.ErrEmptyResponse)
	}
	switch reason := resp.Candidates[0].FinishReason; reason {
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
		return nil, llm.Blocked(providerName, string(reason))
	}

	if resp.UsageMetadata != nil {
		telemetry.Debug("llm.usage", map[string]any{
			"provider":          providerName,
			"model":             c.model,
			"prompt":            req.Name,
			"prompt_tokens":     resp.UsageMetadata.PromptTokenCount,
			"completion_tokens": resp.UsageMetadata.CandidatesTokenCount,
		})
	}

	out, err := llm.CleanJSON(resp.Text())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", providerName, err)
	}
	return out, nil
}

func buildConfig(req llm.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   toSchema(req.Schema),
		SafetySettings:   toSafety(req.Safety),
	}
	if req.Temperature != nil {
		t := *req.Temperature
		cfg.Temperature = &t
	}
	return cfg
}

func toParts(parts []llm.Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.IsMedia() {
			out = append(out, genai.NewPartFromBytes(p.Media.Data, mediaType(p.Media.MimeType)))
			continue
		}
		out = append(out, genai.NewPartFromText(p.Text))
	}
	return out
}

// nativeDocument reports media types Gemini reads inline. Word documents are
// sent as extracted text.
func nativeDocument(mimeType string) bool {
	mt := mediaType(mimeType)
	return mt == extract.MimePDF || mt == extract.MimeText || strings.HasPrefix(mt, "image/")
}

func mediaType(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}

var _ llm.Model = (*Client)(nil)
