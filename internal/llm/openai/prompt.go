package openai

import (
	"context"

	"github.com/openai/openai-go"

	"buildmycv-backend/internal/llm"
)

const systemPrompt = "Respond with a single JSON object that matches the provided schema. No markdown, no commentary."

// BuildMessages turns a request into chat messages. Document parts are
// replaced with their extracted text.
func BuildMessages(ctx context.Context, req llm.Request) ([]openai.ChatCompletionMessageParamUnion, error) {
	parts, err := llm.InlineDocumentsAsText(ctx, req.Parts, nil)
	if err != nil {
		return nil, err
	}
	user, err := llm.JoinText(parts)
	if err != nil {
		return nil, err
	}
	return []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(user),
	}, nil
}
