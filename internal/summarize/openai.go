package summarize

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIGenerator calls a chat-completions endpoint. BaseURL may point at
// any OpenAI-compatible server.
type OpenAIGenerator struct {
	client   *openai.Client
	model    string
	language string
}

func NewOpenAIGenerator(apiKey, model, baseURL, language string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIGenerator{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		language: language,
	}
}

func (g *OpenAIGenerator) Name() string { return "openai" }

func (g *OpenAIGenerator) Generate(ctx context.Context, title, text string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt(g.language),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt(title, text),
			},
		},
		Temperature: 0.5,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
