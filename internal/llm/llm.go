// Package llm is the single "invoke model with schema" primitive used by the
// resume flows. Providers live in subpackages.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

//go:generate mockgen -destination=mocks/model_mock.go -package=mocks buildmycv-backend/internal/llm Model

// Model sends one rendered prompt to a provider and returns the JSON object it
// produced. Implementations never retry.
type Model interface {
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
}

// Describer is implemented by providers that can name themselves for logs.
type Describer interface {
	Provider() string
	ModelName() string
}

// Request is one model invocation.
type Request struct {
	// Name identifies the prompt in logs and metrics.
	Name        string
	Parts       []Part
	Schema      *Schema
	Safety      []SafetySetting
	Temperature *float32
}

// Part is either text or an inline document.
type Part struct {
	Text  string
	Media *Media
}

// Media is an inline document such as an uploaded resume.
type Media struct {
	MimeType string
	FileName string
	Data     []byte
}

// TextPart builds a text part.
func TextPart(s string) Part { return Part{Text: s} }

// MediaPart builds a document part.
func MediaPart(m Media) Part { return Part{Media: &m} }

// IsMedia reports whether the part carries a document.
func (p Part) IsMedia() bool { return p.Media != nil }

var (
	ErrModelTimeout    = errors.New("model call timed out")
	ErrContentBlocked  = errors.New("model blocked the content")
	ErrEmptyResponse   = errors.New("model returned an empty response")
	ErrMalformedOutput = errors.New("model output is not a JSON object")
	ErrNotConfigured   = errors.New("no model provider configured")
)

// Describe returns provider and model names when m exposes them.
func Describe(m Model) (provider, model string) {
	if d, ok := m.(Describer); ok {
		return d.Provider(), d.ModelName()
	}
	return "unknown", ""
}

// PlaceholderModel is used when no provider credentials are configured.
type PlaceholderModel struct{}

// Generate returns ErrNotConfigured.
func (PlaceholderModel) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	_ = ctx
	_ = req
	return nil, ErrNotConfigured
}

func (PlaceholderModel) Provider() string  { return "placeholder" }
func (PlaceholderModel) ModelName() string { return "" }
