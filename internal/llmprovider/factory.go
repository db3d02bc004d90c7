// Package llmprovider selects a concrete ports.LLM/ports.TopicLabeler
// implementation by configuration, mirroring the teacher's
// internal/llm/providers/factory.go switch-based constructor. The pipeline
// packages (internal/extract, internal/topics) never import a concrete
// provider package directly; only this factory and cmd/ckexporter do.
package llmprovider

import (
	"context"
	"fmt"

	"ckexporter/internal/config"
	"ckexporter/internal/llmprovider/anthropic"
	"ckexporter/internal/llmprovider/gemini"
	"ckexporter/internal/llmprovider/openai"
	"ckexporter/internal/ports"
)

// BuildLLM constructs the configured chat backend.
func BuildLLM(ctx context.Context, cfg config.Config) (ports.LLM, error) {
	switch cfg.LLMProvider {
	case "", "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL), nil
	case "anthropic":
		return anthropic.New(cfg.Anthropic.APIKey), nil
	case "gemini":
		return gemini.New(ctx, cfg.Gemini.APIKey)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

// BuildLabeler constructs the configured topic labeler.
func BuildLabeler(ctx context.Context, cfg config.Config) (ports.TopicLabeler, error) {
	switch cfg.LabelerProvider {
	case "", "gemini":
		return gemini.New(ctx, cfg.Gemini.APIKey)
	case "openai":
		return openAILabeler{openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)}, nil
	default:
		return nil, fmt.Errorf("unknown labeler provider %q", cfg.LabelerProvider)
	}
}

// openAILabeler adapts the openai chat client to ports.TopicLabeler using a
// simple prompt-and-parse strategy, for deployments that would rather not
// depend on Gemini for labeling.
type openAILabeler struct {
	chat *openai.Client
}

func (l openAILabeler) Label(ctx context.Context, topicID int, representativeDocs []string, keywords []string) (ports.TopicLabel, error) {
	return labelViaChat(ctx, l.chat, topicID, representativeDocs, keywords)
}
