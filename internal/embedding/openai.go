package embedding

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Dimensions of text-embedding-3-small, matching the knowledge_snippets column.
const Dimensions = 1536

type OpenAIClient struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  openai.SmallEmbedding3,
	}
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding API returned no data")
	}
	return resp.Data[0].Embedding, nil
}
