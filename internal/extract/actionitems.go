package extract

import (
	"regexp"
	"strings"
	"time"

	"ckexporter/internal/atoms"
	"ckexporter/internal/conversation"
)

var checklistLineRe = regexp.MustCompile(`^-\s+\[([ xX])\]\s+(.+)$`)

// ExtractActionItems scans every system-role message for `- [ ]`/`- [x]`
// checklist lines and emits one action_item atom per line, independent of
// any LLM call (spec §4.4's "Deterministic action-item extractor"). It
// runs unconditionally for every conversation, meeting or not; checklist
// lines simply don't occur outside meeting notes in practice.
func ExtractActionItems(conversationID string, messages []conversation.Message, extractedAt string) []atoms.Atom {
	var out []atoms.Atom

	for _, m := range messages {
		if m.Role != conversation.RoleSystem {
			continue
		}
		for _, line := range strings.Split(m.Text, "\n") {
			match := checklistLineRe.FindStringSubmatch(strings.TrimSpace(line))
			if match == nil {
				continue
			}
			statement := strings.TrimSpace(match[2])
			if statement == "" {
				continue
			}
			checked := strings.EqualFold(match[1], "x")

			snippet := statement
			if len(snippet) > 200 {
				snippet = snippet[:200]
			}

			a := atoms.New(atoms.KindActionItem, statement)
			a.ExtractedAt = extractedAt
			a.Evidence = []atoms.Evidence{{
				ConversationID: conversationID,
				MessageID:      m.ID,
				TimeISO:        timeISO(m),
				TextSnippet:    snippet,
			}}
			if checked {
				a.Status = atoms.StatusClosed
			} else {
				a.Status = atoms.StatusOpen
			}
			a.StatusConfidence = atoms.StatusExplicit
			out = append(out, a)
		}
	}

	return out
}

// nowISO is a seam for tests; extract.go's orchestration passes a single
// captured timestamp through every atom emitted for one conversation so a
// whole run shares one extracted_at value per item, matching how the
// reference pipeline stamps a single wall-clock time per record.
func nowISO(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
