package topics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ckexporter/internal/atoms"
)

func TestBuildDocumentGroupsAtomsUnderHeadings(t *testing.T) {
	meta := ConversationMeta{ID: "c1", Title: "Pricing sync", ProjectName: "Q3 Planning"}
	atomList := []atoms.Atom{
		atoms.New(atoms.KindFact, "The API rate limit is 100 rps"),
		atoms.New(atoms.KindDecision, "We will use token-bucket limiting"),
		atoms.New(atoms.KindOpenQuestion, "Should burst traffic be allowed"),
		atoms.New(atoms.KindActionItem, "File a ticket"),
	}

	doc := BuildDocument(meta, atomList, nil)
	assert.Contains(t, doc, "Pricing sync (Q3 Planning)")
	assert.Contains(t, doc, "## Facts and Knowledge")
	assert.Contains(t, doc, "## Decisions")
	assert.Contains(t, doc, "## Open Questions")
	assert.NotContains(t, doc, "File a ticket")
}

func TestBuildDocumentOmitsEmptySections(t *testing.T) {
	meta := ConversationMeta{ID: "c2", Title: "Standup"}
	doc := BuildDocument(meta, nil, nil)
	assert.Contains(t, doc, "Standup")
	assert.NotContains(t, doc, "## Facts")
}

func TestExtractKeywordsRanksByFrequencyThenOrder(t *testing.T) {
	docs := []string{
		"caching caching redis redis redis database",
		"caching queue queue",
	}
	kw := extractKeywords(docs, 2)
	assert.Equal(t, []string{"caching", "redis"}, kw)
}
