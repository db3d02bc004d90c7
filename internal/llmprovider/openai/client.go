// Package openai adapts github.com/openai/openai-go/v2 chat completions to
// ports.LLM. It is the default fast_model backend and supports native
// json_object response-format mode.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

// Client implements ports.LLM against the OpenAI chat completions API.
type Client struct {
	sdk *openai.Client
}

// New constructs a Client. baseURL may be empty to use the default
// api.openai.com endpoint, or point at a local/self-hosted OpenAI-compatible
// server (mirrors the teacher's "local" provider mode).
func New(apiKey, baseURL string) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	sdk := openai.NewClient(opts...)
	return &Client{sdk: &sdk}
}

// Chat implements ports.LLM. When jsonObject is true it requests the
// native json_object response format; if the provider rejects that mode
// (response_format/json_object/400 in the error), spec §4.4 requires one
// retry without it, which callers (internal/extract) handle by inspecting
// the returned error and re-invoking with jsonObject=false.
func (c *Client) Chat(ctx context.Context, model, system, user string, temperature float64, jsonObject bool, maxTokens int) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(temperature),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}
	if jsonObject {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyError tags response-format rejections so callers can detect the
// "retry without json_object" condition by error substring, per spec §4.4.
func classifyError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "response_format") || strings.Contains(msg, "json_object") || strings.Contains(msg, "400") {
		return fmt.Errorf("openai chat: response_format rejected: %w", err)
	}
	return fmt.Errorf("openai chat: %w", err)
}

// IsResponseFormatRejection reports whether err indicates the provider
// rejected json_object mode (detectable by error substring per spec §4.4).
func IsResponseFormatRejection(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "response_format") || strings.Contains(msg, "json_object") || strings.Contains(msg, "400")
}
