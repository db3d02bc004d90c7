package extract

import (
	"strings"
	"time"

	"ckexporter/internal/atoms"
	"ckexporter/internal/conversation"
	"ckexporter/internal/ports"
)

// evidenceIndex maps a message id to its evidence pointer, built once per
// conversation so RawAtom evidence strings (message ids) resolve to full
// Evidence records with time and snippet.
type evidenceIndex map[string]atoms.Evidence

func buildEvidenceIndex(conversationID string, messages []conversation.Message) evidenceIndex {
	idx := make(evidenceIndex, len(messages))
	for _, m := range messages {
		snippet := m.Text
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		idx[m.ID] = atoms.Evidence{
			ConversationID: conversationID,
			MessageID:      m.ID,
			TimeISO:        timeISO(m),
			TextSnippet:    snippet,
		}
	}
	return idx
}

func timeISO(m conversation.Message) string {
	if m.CreateTime == nil {
		return ""
	}
	sec := int64(*m.CreateTime)
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}

// resolveEvidence converts a RawAtom's message-id evidence strings into
// Evidence records, falling back to a bare conversation-id pointer for any
// id the index doesn't recognize so no atom is ever written with zero
// evidence entries.
func resolveEvidence(idx evidenceIndex, conversationID string, ids []string) []atoms.Evidence {
	out := make([]atoms.Evidence, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if e, ok := idx[id]; ok {
			out = append(out, e)
			continue
		}
		out = append(out, atoms.Evidence{ConversationID: conversationID, MessageID: id})
	}
	if len(out) == 0 {
		out = append(out, atoms.Evidence{ConversationID: conversationID})
	}
	return out
}

// ToUniversalAtoms projects a ChunkAtoms payload (legacy fact/decision/
// question shape) into Universal Atom v2, backfilling conversation_id on
// every evidence entry per spec §4.4's "Universal conversion" paragraph.
func ToUniversalAtoms(candidates ports.ChunkAtoms, conversationID string, idx evidenceIndex, extractedAt string) []atoms.Atom {
	out := make([]atoms.Atom, 0, len(candidates.Facts)+len(candidates.Decisions)+len(candidates.OpenQuestions))

	for _, r := range candidates.Facts {
		kind, legacy := atoms.NormalizeKind(firstNonEmpty(r.Type, "fact"))
		if !atoms.IsRecognizedKind(kind) {
			kind = atoms.KindFact
		}
		a := atoms.New(kind, r.Statement)
		a.Topic = r.Topic
		a.ExtractedAt = extractedAt
		a.Evidence = resolveEvidence(idx, conversationID, r.Evidence)
		a.SetLegacyType(legacy)
		out = append(out, a)
	}

	for _, r := range candidates.Decisions {
		a := atoms.New(atoms.KindDecision, r.Statement)
		a.Topic = r.Topic
		a.ExtractedAt = extractedAt
		a.Evidence = resolveEvidence(idx, conversationID, r.Evidence)
		out = append(out, a)
	}

	for _, r := range candidates.OpenQuestions {
		a := atoms.New(atoms.KindOpenQuestion, r.Question)
		a.Topic = r.Topic
		a.Status = atoms.StatusOpen
		a.ExtractedAt = extractedAt
		a.Evidence = resolveEvidence(idx, conversationID, r.Evidence)
		out = append(out, a)
	}

	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
