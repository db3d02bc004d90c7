// Package extract implements the Atom Extractor: the two-pass LLM pipeline
// (per-chunk candidate extraction + whole-conversation refinement), the
// meeting fast path, and the deterministic action-item extractor. This is
// the concurrency-critical core of the pipeline.
package extract

import (
	"fmt"
	"strings"

	"ckexporter/internal/conversation"
)

const pass1SystemPrompt = `You extract knowledge atoms from a chunk of a conversation. ` +
	`Respond with a JSON object of exactly this shape: ` +
	`{"facts":[{"topic":"...","statement":"...","evidence":["message id, ..."]}],` +
	`"decisions":[{"topic":"...","statement":"...","evidence":["..."]}],` +
	`"open_questions":[{"topic":"...","question":"...","evidence":["..."]}]}. ` +
	`Only extract atoms clearly supported by the chunk text. Use empty arrays when nothing qualifies. ` +
	`Every item's evidence array must contain the message id(s) it was derived from.`

const pass2SystemPrompt = `You refine a deduplicated set of candidate knowledge atoms drawn from an ` +
	`entire conversation. Merge near-duplicates, sharpen vague statements, and drop anything that is not ` +
	`a real fact, decision, or open question. Respond with a JSON object of the same shape as the input: ` +
	`{"facts":[...],"decisions":[...],"open_questions":[...]}, preserving each item's evidence array.`

const repairSystemPrompt = `The following text was supposed to be a JSON object but failed to parse. ` +
	`Return only the corrected, valid JSON object with no surrounding commentary or code fences.`

// buildChunkPrompt renders the per-chunk user prompt: each message prefixed
// with its id and role so the model can cite evidence by message id.
func buildChunkPrompt(messages []conversation.Message) string {
	var b strings.Builder
	b.WriteString("Conversation chunk:\n\n")
	for _, m := range messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n\n", m.ID, m.Role, m.Text)
	}
	return b.String()
}

// buildRefinePrompt renders the Pass-2 user prompt: conversation identity
// plus the pre-deduped candidate set as JSON.
func buildRefinePrompt(conversationID, title string, candidatesJSON string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Conversation id: %s\nTitle: %s\n\n", conversationID, title)
	b.WriteString("Candidate atoms (deduplicated):\n")
	b.WriteString(candidatesJSON)
	return b.String()
}
