package ai

import "context"

// TextGenerator generates text from a system prompt and user prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// GenerateJSON is like GenerateText but constrains the model to emit a
	// single JSON object.
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
