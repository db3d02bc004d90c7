package atoms

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeStatement applies the composite-key normalization spec §4.4
// requires: Unicode NFC, lowercase, collapse internal whitespace, strip.
func NormalizeStatement(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// CompositeKey is the per-kind dedupe tuple used by both the extractor's
// Pass-2 pre-dedupe and the project-wide Consolidator.
type CompositeKey struct {
	Kind      Kind
	Topic     string
	Statement string
}

// Key builds the composite dedupe key for an atom: (kind, topic,
// normalize(statement)) for facts/decisions/etc; open_question uses
// (topic, normalize(statement)) per spec, folded here onto the same shape
// since Kind is already part of the tuple for every other kind.
func (a *Atom) Key() CompositeKey {
	return CompositeKey{Kind: a.Kind, Topic: a.Topic, Statement: NormalizeStatement(a.Statement)}
}
