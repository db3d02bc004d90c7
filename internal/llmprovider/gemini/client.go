// Package gemini adapts google.golang.org/genai to both ports.LLM (an
// alternate chat backend) and ports.TopicLabeler (the default labeler:
// cheap, good at short categorical naming).
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"ckexporter/internal/ports"
)

// Client implements ports.LLM and ports.TopicLabeler against the Gemini API.
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
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{sdk: sdk}, nil
}

func (c *Client) Chat(ctx context.Context, model, system, user string, temperature float64, jsonObject bool, maxTokens int) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(float32(temperature)),
	}
	if jsonObject {
		cfg.ResponseMIMEType = "application/json"
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}

	resp, err := c.sdk.Models.GenerateContent(ctx, model, genai.Text(user), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini chat: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini: empty response text")
	}
	return text, nil
}

// labelSchema is the shape the labeling prompt asks Gemini to return.
type labelSchema struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Label implements ports.TopicLabeler: naming and describing a cluster from
// its representative documents and derived keywords.
func (c *Client) Label(ctx context.Context, topicID int, representativeDocs []string, keywords []string) (ports.TopicLabel, error) {
	prompt := buildLabelPrompt(representativeDocs, keywords)
	text, err := c.Chat(ctx, "gemini-2.0-flash", labelSystemPrompt, prompt, 0.2, true, 256)
	if err != nil {
		return ports.TopicLabel{}, err
	}

	var parsed labelSchema
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &parsed); err != nil {
		return ports.TopicLabel{}, fmt.Errorf("gemini label: parse response: %w", err)
	}
	if parsed.Name == "" {
		return ports.TopicLabel{}, fmt.Errorf("gemini label: empty name")
	}
	return ports.TopicLabel{Name: parsed.Name, Description: parsed.Description}, nil
}

const labelSystemPrompt = `You name and describe a cluster of related conversation documents. ` +
	`Respond with a JSON object {"name": "...", "description": "..."}. The name should be ` +
	`2-5 words, title case. The description should be one sentence.`

func buildLabelPrompt(docs []string, keywords []string) string {
	var b strings.Builder
	b.WriteString("Keywords: ")
	b.WriteString(strings.Join(keywords, ", "))
	b.WriteString("\n\nRepresentative documents:\n")
	for i, d := range docs {
		fmt.Fprintf(&b, "--- doc %d ---\n%s\n", i+1, truncate(d, 2000))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// extractJSONObject finds the first {...} span in text, tolerating a
// markdown code fence around the JSON body.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}
