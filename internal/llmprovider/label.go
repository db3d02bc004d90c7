package llmprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ckexporter/internal/llmprovider/openai"
	"ckexporter/internal/ports"
)

const labelSystemPrompt = `You name and describe a cluster of related conversation documents. ` +
	`Respond with a JSON object {"name": "...", "description": "..."}. The name should be ` +
	`2-5 words, title case. The description should be one sentence.`

type labelSchema struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// labelViaChat implements ports.TopicLabeler on top of the openai adapter's
// plain chat call by prompting for a JSON object and
// parsing it, mirroring the prompt shape internal/llmprovider/gemini uses
// natively.
func labelViaChat(ctx context.Context, chat *openai.Client, topicID int, docs, keywords []string) (ports.TopicLabel, error) {
	var b strings.Builder
	b.WriteString("Keywords: ")
	b.WriteString(strings.Join(keywords, ", "))
	b.WriteString("\n\nRepresentative documents:\n")
	for i, d := range docs {
		if len(d) > 2000 {
			d = d[:2000]
		}
		fmt.Fprintf(&b, "--- doc %d ---\n%s\n", i+1, d)
	}

	text, err := chat.Chat(ctx, "gpt-4o-mini", labelSystemPrompt, b.String(), 0.2, true, 256)
	if err != nil {
		return ports.TopicLabel{}, err
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return ports.TopicLabel{}, fmt.Errorf("label: no JSON object in response")
	}

	var parsed labelSchema
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return ports.TopicLabel{}, fmt.Errorf("label: parse response: %w", err)
	}
	if parsed.Name == "" {
		return ports.TopicLabel{}, fmt.Errorf("label: empty name")
	}
	return ports.TopicLabel{Name: parsed.Name, Description: parsed.Description}, nil
}
