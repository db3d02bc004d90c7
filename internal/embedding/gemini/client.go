// Package gemini adapts google.golang.org/genai's embeddings endpoint to
// internal/embedding's RawEmbedder port.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Client implements embedding.RawEmbedder against the Gemini API.
type Client struct {
	sdk *genai.Client
}

// New constructs a Client using an API-key backed genai client.
func New(ctx context.Context, apiKey string) (*Client, error) {
	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embedding client: %w", err)
	}
	return &Client{sdk: sdk}, nil
}

// EmbedBatch embeds each text with its own EmbedContent call; the genai
// SDK's batch embedding surface takes one Content per call result, so this
// fans out sequentially rather than in one request.
func (c *Client) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		resp, err := c.sdk.Models.EmbedContent(ctx, model, []*genai.Content{genai.NewContentFromText(t, genai.RoleUser)}, nil)
		if err != nil {
			return nil, fmt.Errorf("gemini embed: %w", err)
		}
		if len(resp.Embeddings) == 0 {
			return nil, fmt.Errorf("gemini embed: empty response for input %d", i)
		}
		out[i] = resp.Embeddings[0].Values
	}
	return out, nil
}
