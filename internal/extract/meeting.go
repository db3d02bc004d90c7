package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"ckexporter/internal/atoms"
	"ckexporter/internal/conversation"
	"ckexporter/internal/ports"
)

// MeetingPrefix marks a conversation id as meeting notes, triggering the
// structured fast path before falling back to the two-pass pipeline.
const MeetingPrefix = "meeting__"

var (
	meetingDateRe  = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	meetingEmailRe = regexp.MustCompile(`[\w.+-]+@[\w.-]+\.\w+`)
	transcriptLinkRe = regexp.MustCompile(`\[Transcript\]\(([^)]+)\)`)
	recordingLinkRe  = regexp.MustCompile(`\[Recording\]\(([^)]+)\)`)
	calendarLinkRe   = regexp.MustCompile(`https://www\.google\.com/calendar/event\S*`)
)

// MeetingMetadata is the explicit metadata the original DSPy program fed
// alongside the raw transcript: date, participants, and cross-reference
// links, scraped with the same permissive regex heuristics as the source's
// extract_meeting_metadata (the DSPy refinement step itself becomes one
// structured LLM call here, see ExtractMeeting).
type MeetingMetadata struct {
	MeetingTitle string   `json:"meeting_title"`
	MeetingDate  string   `json:"meeting_date,omitempty"`
	Participants []string `json:"participants,omitempty"`
	Links        struct {
		Transcript string `json:"transcript,omitempty"`
		Recording  string `json:"recording,omitempty"`
		Calendar   string `json:"calendar,omitempty"`
	} `json:"links"`
}

// ParseMeetingMetadata scrapes date/participants/links out of a meeting's
// linearized text, mirroring the original's line-scanning heuristics.
func ParseMeetingMetadata(title string, messages []conversation.Message) MeetingMetadata {
	meta := MeetingMetadata{MeetingTitle: title}

	var all strings.Builder
	for _, m := range messages {
		all.WriteString(m.Text)
		all.WriteString("\n")
	}
	text := all.String()

	if m := meetingDateRe.FindStringSubmatch(text); m != nil {
		meta.MeetingDate = m[1]
	}

	seen := map[string]bool{}
	for _, e := range meetingEmailRe.FindAllString(text, -1) {
		if !seen[e] {
			seen[e] = true
			meta.Participants = append(meta.Participants, e)
		}
	}

	if m := transcriptLinkRe.FindStringSubmatch(text); m != nil {
		meta.Links.Transcript = m[1]
	}
	if m := recordingLinkRe.FindStringSubmatch(text); m != nil {
		meta.Links.Recording = m[1]
	}
	if m := calendarLinkRe.FindString(text); m != "" {
		meta.Links.Calendar = m
	}

	return meta
}

const meetingSystemPrompt = `You extract Universal Atoms (schema version 2) from a meeting's notes and transcript. ` +
	`Extract meeting topics, decisions, action items/commitments, risks/blockers/dependencies, and open ` +
	`questions. Respond with a JSON object {"atoms":[{"schema_version":2,"kind":"...","statement":"...",` +
	`"topic":"...","status":"...","evidence":[{"message_id":"..."}]}, ...]}. kind must be one of fact, ` +
	`decision, open_question, action_item, meeting_topic, risk, blocker, dependency, deliverable, milestone. ` +
	`Every atom's evidence array must contain at least one message_id drawn from the transcript.`

// ExtractMeeting implements the "DSPy-style structured meeting extractor":
// one LLM call given the full linearized content plus parsed metadata,
// asked to emit Universal Atom v2 records directly. Returns ok=false on
// any empty, non-JSON, or zero-atom reply so the caller falls through to
// the two-pass pipeline.
func ExtractMeeting(ctx context.Context, chat ports.LLM, model, conversationID string, meta MeetingMetadata, messages []conversation.Message) ([]atoms.Atom, bool) {
	idx := buildEvidenceIndex(conversationID, messages)

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, false
	}

	var content strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&content, "[%s] %s: %s\n\n", m.ID, m.Role, m.Text)
	}

	prompt := fmt.Sprintf("Conversation id: %s\nMeeting metadata: %s\n\nLinearized content:\n%s",
		conversationID, string(metaJSON), content.String())

	reply, err := chat.Chat(ctx, model, meetingSystemPrompt, prompt, 0.2, true, 0)
	if err != nil {
		return nil, false
	}

	var payload struct {
		Atoms []atoms.Atom `json:"atoms"`
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, false
	}
	if m := codeBlockRe.FindStringSubmatch(reply); m != nil {
		reply = m[1]
	}
	if err := json.Unmarshal([]byte(reply), &payload); err != nil {
		return nil, false
	}
	if len(payload.Atoms) == 0 {
		return nil, false
	}

	for i := range payload.Atoms {
		a := &payload.Atoms[i]
		if a.SchemaVersion == 0 {
			a.SchemaVersion = atoms.SchemaVersion
		}
		if len(a.Evidence) == 0 {
			a.Evidence = []atoms.Evidence{{ConversationID: conversationID}}
		}
		for j := range a.Evidence {
			if a.Evidence[j].ConversationID == "" {
				a.Evidence[j].ConversationID = conversationID
			}
			if a.Evidence[j].MessageID != "" {
				if e, ok := idx[a.Evidence[j].MessageID]; ok {
					if a.Evidence[j].TimeISO == "" {
						a.Evidence[j].TimeISO = e.TimeISO
					}
					if a.Evidence[j].TextSnippet == "" {
						a.Evidence[j].TextSnippet = e.TextSnippet
					}
				}
			}
		}
		kind, legacy := atoms.NormalizeKind(string(a.Kind))
		a.Kind = kind
		if legacy != "" {
			a.SetLegacyType(legacy)
		}
		if !atoms.IsRecognizedKind(a.Kind) {
			a.Kind = atoms.KindMeetingTopic
		}
	}

	return payload.Atoms, true
}
