package topics

import (
	"sort"
	"strings"

	"ckexporter/internal/atoms"
)

// DefaultIncludedKinds are the atom kinds that feed topic documents. Other
// kinds (action items, meeting topics, risks, blockers, dependencies) are
// excluded by default to avoid topic noise.
var DefaultIncludedKinds = map[atoms.Kind]bool{
	atoms.KindFact:         true,
	atoms.KindDecision:     true,
	atoms.KindOpenQuestion: true,
}

var sectionHeadings = []struct {
	kind    atoms.Kind
	heading string
}{
	{atoms.KindFact, "Facts and Knowledge"},
	{atoms.KindDecision, "Decisions"},
	{atoms.KindOpenQuestion, "Open Questions"},
}

// ConversationMeta is the minimal conversation identity a topic document is
// built from; topics never needs the full Canonical Conversation.
type ConversationMeta struct {
	ID          string
	Title       string
	ProjectName string
}

// BuildDocument synthesizes one topic-discovery document from a
// conversation's title and its atoms, grouped under fixed section headings.
// included, if non-nil, overrides DefaultIncludedKinds.
func BuildDocument(meta ConversationMeta, atomList []atoms.Atom, included map[atoms.Kind]bool) string {
	if included == nil {
		included = DefaultIncludedKinds
	}

	var b strings.Builder
	if meta.ProjectName != "" {
		b.WriteString(meta.Title)
		b.WriteString(" (")
		b.WriteString(meta.ProjectName)
		b.WriteString(")\n\n")
	} else {
		b.WriteString(meta.Title)
		b.WriteString("\n\n")
	}

	byKind := map[atoms.Kind][]atoms.Atom{}
	for _, a := range atomList {
		if included[a.Kind] {
			byKind[a.Kind] = append(byKind[a.Kind], a)
		}
	}

	for _, sec := range sectionHeadings {
		group := byKind[sec.kind]
		if len(group) == 0 {
			continue
		}
		b.WriteString("## ")
		b.WriteString(sec.heading)
		b.WriteString("\n")
		for _, a := range group {
			b.WriteString("- ")
			b.WriteString(a.Statement)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "for": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "with": true, "that": true,
	"this": true, "it": true, "as": true, "by": true, "at": true, "we": true,
	"will": true, "should": true, "from": true, "not": true, "but": true,
}

// extractKeywords returns up to max lower-cased, stopword-filtered tokens
// ranked by frequency across docs, tie-broken by first appearance.
func extractKeywords(docs []string, max int) []string {
	counts := map[string]int{}
	firstSeen := map[string]int{}
	order := 0
	for _, doc := range docs {
		for _, tok := range strings.Fields(doc) {
			tok = strings.ToLower(strings.Trim(tok, ".,!?:;()[]{}\"'#-"))
			if len(tok) < 3 || stopwords[tok] {
				continue
			}
			if _, ok := firstSeen[tok]; !ok {
				firstSeen[tok] = order
				order++
			}
			counts[tok]++
		}
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return firstSeen[keys[i]] < firstSeen[keys[j]]
	})
	if len(keys) > max {
		keys = keys[:max]
	}
	return keys
}
