package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ckexporter/internal/ports"
)

func TestPreDedupeMergesEvidenceAcrossChunks(t *testing.T) {
	chunks := []ports.ChunkAtoms{
		{
			Facts: []ports.RawAtom{
				{Type: "fact", Topic: "billing", Statement: "We bill monthly.", Evidence: []string{"m1"}},
			},
		},
		{
			Facts: []ports.RawAtom{
				{Type: "fact", Topic: "billing", Statement: "We BILL  monthly.", Evidence: []string{"m2"}},
			},
		},
	}

	merged := PreDedupe(chunks, 0)
	require.Len(t, merged.Facts, 1)
	assert.ElementsMatch(t, []string{"m1", "m2"}, merged.Facts[0].Evidence)
}

func TestPreDedupeCapsEvidenceAtMaxItems(t *testing.T) {
	chunks := []ports.ChunkAtoms{
		{Decisions: []ports.RawAtom{{Topic: "x", Statement: "Use Postgres.", Evidence: []string{"a", "b"}}}},
		{Decisions: []ports.RawAtom{{Topic: "x", Statement: "Use Postgres.", Evidence: []string{"c"}}}},
	}

	merged := PreDedupe(chunks, 2)
	require.Len(t, merged.Decisions, 1)
	assert.Len(t, merged.Decisions[0].Evidence, 2)
}

func TestPreDedupeKeepsDistinctTopicsSeparate(t *testing.T) {
	chunks := []ports.ChunkAtoms{
		{OpenQuestions: []ports.RawAtom{{Topic: "infra", Question: "Which region?", Evidence: []string{"m1"}}}},
		{OpenQuestions: []ports.RawAtom{{Topic: "billing", Question: "Which region?", Evidence: []string{"m2"}}}},
	}

	merged := PreDedupe(chunks, 0)
	assert.Len(t, merged.OpenQuestions, 2)
}

func TestReorderByChunkIndexSortsOutOfOrderCompletions(t *testing.T) {
	results := []indexedChunkAtoms{
		{index: 2, atoms: ports.ChunkAtoms{Facts: []ports.RawAtom{{Statement: "third"}}}},
		{index: 0, atoms: ports.ChunkAtoms{Facts: []ports.RawAtom{{Statement: "first"}}}},
		{index: 1, atoms: ports.ChunkAtoms{Facts: []ports.RawAtom{{Statement: "second"}}}},
	}

	ordered := reorderByChunkIndex(results)
	require.Len(t, ordered, 3)
	assert.Equal(t, "first", ordered[0].Facts[0].Statement)
	assert.Equal(t, "second", ordered[1].Facts[0].Statement)
	assert.Equal(t, "third", ordered[2].Facts[0].Statement)
}
