// Package atoms implements the Universal Atom v2 schema: the typed
// knowledge unit every extractor writes and every downstream stage
// (consolidator, topic discoverer) consumes.
package atoms

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion is the only supported schema_version value.
const SchemaVersion = 2

// Kind is one of the canonical atom kinds. Legacy aliases are folded into
// Fact at read time; write-side code must only ever emit canonical kinds.
type Kind string

const (
	KindFact          Kind = "fact"
	KindDecision      Kind = "decision"
	KindOpenQuestion  Kind = "open_question"
	KindActionItem    Kind = "action_item"
	KindMeetingTopic  Kind = "meeting_topic"
	KindRisk          Kind = "risk"
	KindBlocker       Kind = "blocker"
	KindDependency    Kind = "dependency"
	KindDeliverable   Kind = "deliverable"
	KindMilestone     Kind = "milestone"
)

// legacyAliases maps pre-v2 kind strings onto their v2 canonical kind.
// The original string is preserved at meta.legacy.type.
var legacyAliases = map[string]Kind{
	"requirement": KindFact,
	"definition":  KindFact,
	"metric":      KindFact,
	"assumption":  KindFact,
	"constraint":  KindFact,
	"idea":        KindFact,
}

// canonicalKinds is the full set of kind values NormalizeKind will ever
// return, used by IsRecognizedKind.
var canonicalKinds = map[Kind]bool{
	KindFact: true, KindDecision: true, KindOpenQuestion: true,
	KindActionItem: true, KindMeetingTopic: true, KindRisk: true,
	KindBlocker: true, KindDependency: true, KindDeliverable: true,
	KindMilestone: true,
}

// IsRecognizedKind reports whether k is a canonical v2 kind (legacy aliases
// are not recognized here — callers should NormalizeKind first).
func IsRecognizedKind(k Kind) bool {
	return canonicalKinds[k]
}

// StatusConfidence distinguishes a status the source explicitly stated from
// one the extractor inferred.
type StatusConfidence string

const (
	StatusExplicit StatusConfidence = "explicit"
	StatusInferred StatusConfidence = "inferred"
)

const (
	StatusActive     = "active"
	StatusDeprecated = "deprecated"
	StatusUncertain  = "uncertain"
	StatusOpen       = "open"
	StatusClosed     = "closed"
)

// Evidence is a pointer back to the source message an atom was derived from.
// At least one of ConversationID, MessageID, or TimeISO must be present.
type Evidence struct {
	ConversationID string `json:"conversation_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
	TimeISO        string `json:"time_iso,omitempty"`
	TextSnippet    string `json:"text_snippet,omitempty"`
}

// key returns the composite identity used for evidence-set dedupe:
// (conversation_id, message_id, time_iso).
func (e Evidence) key() string {
	return e.ConversationID + "\x1f" + e.MessageID + "\x1f" + e.TimeISO
}

// Atom is the Universal Atom v2 record.
type Atom struct {
	SchemaVersion    int              `json:"schema_version"`
	Kind             Kind             `json:"kind"`
	Statement        string           `json:"statement"`
	Topic            string           `json:"topic,omitempty"`
	Status           string           `json:"status,omitempty"`
	StatusConfidence StatusConfidence `json:"status_confidence,omitempty"`
	Evidence         []Evidence       `json:"evidence"`
	ExtractedAt      string           `json:"extracted_at,omitempty"`
	Meta             json.RawMessage  `json:"meta,omitempty"`
}

// New returns an Atom with defaults applied (schema_version=2, status="active").
func New(kind Kind, statement string) Atom {
	return Atom{
		SchemaVersion: SchemaVersion,
		Kind:          kind,
		Statement:     statement,
		Status:        StatusActive,
	}
}

// NormalizeKind maps a raw kind string (which may be a legacy alias) onto a
// canonical Kind, returning the stashed legacy string (empty if none).
func NormalizeKind(raw string) (canonical Kind, legacy string) {
	if alias, ok := legacyAliases[raw]; ok {
		return alias, raw
	}
	return Kind(raw), ""
}

// WithEvidenceConversationID backfills ConversationID on every evidence
// entry that is missing it. The extractor applies this just before writing.
func (a *Atom) WithEvidenceConversationID(conversationID string) {
	for i := range a.Evidence {
		if a.Evidence[i].ConversationID == "" {
			a.Evidence[i].ConversationID = conversationID
		}
	}
}

// MergeEvidence unions e into a's evidence list, deduping by (conversation_id,
// message_id, time_iso). If maxItems > 0, the merged list is capped.
func (a *Atom) MergeEvidence(e []Evidence, maxItems int) {
	seen := make(map[string]bool, len(a.Evidence))
	for _, ev := range a.Evidence {
		seen[ev.key()] = true
	}
	for _, ev := range e {
		k := ev.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		a.Evidence = append(a.Evidence, ev)
	}
	if maxItems > 0 && len(a.Evidence) > maxItems {
		a.Evidence = a.Evidence[:maxItems]
	}
}

// setMetaPath stores a value at meta[section][field], creating intermediate
// maps as needed, and re-marshals Meta.
func (a *Atom) setMetaPath(section, field string, value any) {
	m := a.metaMap()
	sub, _ := m[section].(map[string]any)
	if sub == nil {
		sub = map[string]any{}
	}
	sub[field] = value
	m[section] = sub
	a.Meta, _ = json.Marshal(m)
}

func (a *Atom) metaMap() map[string]any {
	m := map[string]any{}
	if len(a.Meta) > 0 {
		_ = json.Unmarshal(a.Meta, &m)
	}
	return m
}

// metaPath reads meta[section][field], returning ok=false if any segment is
// missing or of the wrong shape.
func (a *Atom) metaPath(section, field string) (any, bool) {
	m := a.metaMap()
	sub, ok := m[section].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := sub[field]
	return v, ok
}

func asString(v any, ok bool) string {
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func asStringSlice(v any, ok bool) []string {
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// SetLegacyType stashes the original (pre-normalization) kind string.
func (a *Atom) SetLegacyType(legacy string) {
	if legacy == "" {
		return
	}
	a.setMetaPath("legacy", "type", legacy)
}

// LegacyType returns meta.legacy.type, or "" if not set.
func (a *Atom) LegacyType() string { v, ok := a.metaPath("legacy", "type"); return asString(v, ok) }

// Typed meta.decision.* accessors.

func (a *Atom) SetDecisionAlternatives(alts []string) { a.setMetaPath("decision", "alternatives", alts) }
func (a *Atom) DecisionAlternatives() []string {
	v, ok := a.metaPath("decision", "alternatives")
	return asStringSlice(v, ok)
}

func (a *Atom) SetDecisionRationale(r string) { a.setMetaPath("decision", "rationale", r) }
func (a *Atom) DecisionRationale() string {
	v, ok := a.metaPath("decision", "rationale")
	return asString(v, ok)
}

func (a *Atom) SetDecisionConsequences(c []string) { a.setMetaPath("decision", "consequences", c) }
func (a *Atom) DecisionConsequences() []string {
	v, ok := a.metaPath("decision", "consequences")
	return asStringSlice(v, ok)
}

// Typed meta.task.* accessors (action_item).

func (a *Atom) SetTaskOwner(owner string) { a.setMetaPath("task", "owner", owner) }
func (a *Atom) TaskOwner() string         { v, ok := a.metaPath("task", "owner"); return asString(v, ok) }

func (a *Atom) SetTaskDue(due string) { a.setMetaPath("task", "due", due) }
func (a *Atom) TaskDue() string       { v, ok := a.metaPath("task", "due"); return asString(v, ok) }

// Typed meta.issue.* accessors (risk/blocker/dependency).

func (a *Atom) SetIssueOwner(owner string) { a.setMetaPath("issue", "owner", owner) }
func (a *Atom) IssueOwner() string         { v, ok := a.metaPath("issue", "owner"); return asString(v, ok) }

func (a *Atom) SetIssueBlockedBy(ids []string) { a.setMetaPath("issue", "blocked_by", ids) }
func (a *Atom) IssueBlockedBy() []string {
	v, ok := a.metaPath("issue", "blocked_by")
	return asStringSlice(v, ok)
}

func (a *Atom) SetIssueDependsOn(ids []string) { a.setMetaPath("issue", "depends_on", ids) }
func (a *Atom) IssueDependsOn() []string {
	v, ok := a.metaPath("issue", "depends_on")
	return asStringSlice(v, ok)
}

// Typed meta.meeting.* / meta.question.* accessors.

func (a *Atom) SetMeetingTopicSummary(s string) { a.setMetaPath("meeting", "topic.summary", s) }
func (a *Atom) MeetingTopicSummary() string {
	v, ok := a.metaPath("meeting", "topic.summary")
	return asString(v, ok)
}

func (a *Atom) SetQuestionContext(s string) { a.setMetaPath("question", "context", s) }
func (a *Atom) QuestionContext() string {
	v, ok := a.metaPath("question", "context")
	return asString(v, ok)
}

// Validate checks the invariants spec S3 requires of every emitted atom:
// non-empty evidence, every evidence entry carrying a conversation id, and a
// recognized kind.
func (a *Atom) Validate() error {
	if len(a.Evidence) == 0 {
		return fmt.Errorf("atom %q: evidence is empty", a.Statement)
	}
	for i, e := range a.Evidence {
		if e.ConversationID == "" {
			return fmt.Errorf("atom %q: evidence[%d] missing conversation_id", a.Statement, i)
		}
	}
	if !IsRecognizedKind(a.Kind) {
		return fmt.Errorf("atom %q: unrecognized kind %q", a.Statement, a.Kind)
	}
	return nil
}
