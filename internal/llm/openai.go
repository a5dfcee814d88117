package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	openAIChatModel = "gpt-4o-mini"

	cerebrasBaseURL = "https://api.cerebras.ai/v1"
	cerebrasModel   = "llama-3.3-70b"
)

// OpenAIClient talks to any OpenAI-compatible chat completions API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = openAIChatModel
	}
	return &OpenAIClient{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: 0.2,
	}
}

// NewCerebrasClient uses Cerebras' OpenAI-compatible endpoint.
func NewCerebrasClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = cerebrasModel
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = cerebrasBaseURL
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: 0.2,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
