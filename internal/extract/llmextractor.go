package extract

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"ckexporter/internal/observability"
	"ckexporter/internal/ports"
)

// LLMExtractor implements ports.AtomExtractor on top of a single ports.LLM
// backend, following spec §4.4's Pass-1/Pass-2 parsing and fallback
// contract exactly.
type LLMExtractor struct {
	Chat      ports.LLM
	FastModel string
	BigModel  string
}

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// isResponseFormatRejection detects the provider error substrings spec
// §4.4 names for a json_object-mode rejection.
func isResponseFormatRejection(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "response_format") ||
		strings.Contains(msg, "json_object") ||
		strings.Contains(msg, "400")
}

// parseChunkAtoms attempts direct JSON parse, then a fenced-code-block
// extraction, returning ok=false if neither yields a valid object.
func parseChunkAtoms(text string) (ports.ChunkAtoms, bool) {
	var out ports.ChunkAtoms
	text = strings.TrimSpace(text)
	if text == "" {
		return out, false
	}
	if err := json.Unmarshal([]byte(text), &out); err == nil && strings.HasPrefix(text, "{") {
		return out, true
	}
	if m := codeBlockRe.FindStringSubmatch(text); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &out); err == nil {
			return out, true
		}
	}
	return out, false
}

// ExtractFromChunk implements Pass 1: one fast_model call per chunk, with
// the json_object-rejection retry, markdown-fence fallback, and one repair
// call before giving up with an empty-shape result.
func (x *LLMExtractor) ExtractFromChunk(ctx context.Context, text string) (ports.ChunkAtoms, error) {
	reply, err := x.Chat.Chat(ctx, x.FastModel, pass1SystemPrompt, text, 0.3, true, 0)
	if err != nil && isResponseFormatRejection(err) {
		reply, err = x.Chat.Chat(ctx, x.FastModel, pass1SystemPrompt, text, 0.3, false, 0)
	}
	if err != nil {
		return ports.ChunkAtoms{}, nil
	}

	if parsed, ok := parseChunkAtoms(reply); ok {
		return parsed, nil
	}

	repaired, err := x.Chat.Chat(ctx, x.FastModel, repairSystemPrompt, reply, 0.1, true, 0)
	if err != nil {
		return ports.ChunkAtoms{}, nil
	}
	if parsed, ok := parseChunkAtoms(repaired); ok {
		return parsed, nil
	}
	return ports.ChunkAtoms{}, nil
}

// RefineAtoms implements Pass 2: one big_model call over the already
// pre-deduped candidate set. An empty, non-JSON, or non-object reply falls
// back to the candidates unchanged; the conversation never fails.
func (x *LLMExtractor) RefineAtoms(ctx context.Context, candidates ports.ChunkAtoms, conversationID, title string) (ports.ChunkAtoms, error) {
	candidatesJSON, err := json.Marshal(candidates)
	if err != nil {
		return candidates, nil
	}

	prompt := buildRefinePrompt(conversationID, title, string(candidatesJSON))
	reply, err := x.Chat.Chat(ctx, x.BigModel, pass2SystemPrompt, prompt, 0.2, true, 0)
	if err != nil {
		return candidates, nil
	}

	parsed, ok := parseChunkAtoms(reply)
	if !ok {
		observability.LoggerWithTrace(ctx).Debug().
			Str("conversation_id", conversationID).
			Str("reply_preview", redactedPreview(reply)).
			Msg("extract: pass2 reply did not parse as ChunkAtoms, falling back to candidates")
		return candidates, nil
	}
	return parsed, nil
}

// redactedPreview returns a bounded preview of an LLM reply for debug
// logging: redacted through RedactJSON when the reply happens to be valid
// JSON, truncated either way so a runaway reply never floods the logger.
func redactedPreview(reply string) string {
	const maxLen = 500
	out := reply
	if json.Valid([]byte(reply)) {
		out = string(observability.RedactJSON(json.RawMessage(reply)))
	}
	if len(out) > maxLen {
		out = out[:maxLen] + "...(truncated)"
	}
	return out
}
