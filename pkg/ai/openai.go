package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const defaultMaxCompletionTokens = 500

// OpenAIGenerator implements TextGenerator against the OpenAI chat
// completions API. BaseURL may point at any compatible endpoint.
type OpenAIGenerator struct {
	client    openai.Client
	model     shared.ChatModel
	maxTokens int64
}

// OpenAIConfig configures one OpenAIGenerator.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// MaxCompletionTokens caps each completion; zero keeps the default.
	MaxCompletionTokens int64
}

// NewOpenAIGenerator builds a chat-completions backed generator.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("openai generation model required")
	}
	opts := make([]option.RequestOption, 0, 2)
	opts = append(opts, option.WithAPIKey(strings.TrimSpace(cfg.APIKey)))
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	maxTokens := cfg.MaxCompletionTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxCompletionTokens
	}
	return &OpenAIGenerator{
		client:    openai.NewClient(opts...),
		model:     shared.ChatModel(model),
		maxTokens: maxTokens,
	}, nil
}

// GenerateText performs one chat completion and returns the text.
func (g *OpenAIGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return g.complete(ctx, systemPrompt, userPrompt, false)
}

// GenerateJSON performs one chat completion in JSON-object mode.
func (g *OpenAIGenerator) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return g.complete(ctx, systemPrompt, userPrompt, true)
}

func (g *OpenAIGenerator) complete(ctx context.Context, systemPrompt, userPrompt string, jsonMode bool) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	params := openai.ChatCompletionNewParams{
		Model:               g.model,
		Messages:            messages,
		MaxCompletionTokens: openai.Int(g.maxTokens),
	}
	if jsonMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty response from openai api")
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty response from openai api")
	}
	return text, nil
}
