package pipeline

import (
	"context"

	"ckexporter/internal/ports"
)

// semaphoredLLM wraps a ports.LLM so every Chat call acquires the
// process-wide LLMSemaphore first and releases it on every return path,
// matching LLMSemaphore's documented contract without requiring each concrete
// adapter (openai/anthropic/gemini) to know about the semaphore itself.
type semaphoredLLM struct {
	inner ports.LLM
	sem   *LLMSemaphore
}

// WithLLMSemaphore returns a ports.LLM that bounds inner's concurrent Chat
// calls to sem's capacity.
func WithLLMSemaphore(inner ports.LLM, sem *LLMSemaphore) ports.LLM {
	return semaphoredLLM{inner: inner, sem: sem}
}

func (s semaphoredLLM) Chat(ctx context.Context, model, system, user string, temperature float64, jsonObject bool, maxTokens int) (string, error) {
	if err := s.sem.Acquire(ctx); err != nil {
		return "", err
	}
	defer s.sem.Release()
	return s.inner.Chat(ctx, model, system, user, temperature, jsonObject, maxTokens)
}
