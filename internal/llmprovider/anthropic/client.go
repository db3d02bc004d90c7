// Package anthropic adapts github.com/anthropics/anthropic-sdk-go to
// ports.LLM. Anthropic has no native json_object response mode, so this
// adapter always appends a JSON-only instruction to the system prompt and
// relies on the extractor's markdown/repair fallback path (spec §4.4) to
// recover from any stray prose around the JSON body.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Client implements ports.LLM against the Anthropic Messages API.
type Client struct {
	sdk *anthropic.Client
}

// New constructs a Client.
func New(apiKey string) *Client {
	sdk := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Client{sdk: &sdk}
}

func (c *Client) Chat(ctx context.Context, model, system, user string, temperature float64, jsonObject bool, maxTokens int) (string, error) {
	sys := system
	if jsonObject {
		sys += "\n\nRespond with a single JSON object and no other text."
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	resp, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: sys},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
		Temperature: anthropic.Float(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("anthropic chat: %w", err)
	}

	var out string
	for _, block := range resp.Content {
		if text := block.Text; text != "" {
			out += text
		}
	}
	if out == "" {
		return "", fmt.Errorf("anthropic: empty response content")
	}
	return out, nil
}
