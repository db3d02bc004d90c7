package consolidate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ckexporter/internal/atoms"
)

func writeConvAtoms(t *testing.T, root, convID string, atomList []atoms.Atom) {
	t.Helper()
	dir := filepath.Join(root, convID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	f, err := os.Create(filepath.Join(dir, "atoms.jsonl"))
	require.NoError(t, err)
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, a := range atomList {
		require.NoError(t, enc.Encode(a))
	}
}

func TestRunDedupesAcrossConversationsKeepingFirstSeen(t *testing.T) {
	root := t.TempDir()

	a1 := atoms.New(atoms.KindFact, "The rate limit is 100 rps")
	a1.Topic = "api"
	a1.Evidence = []atoms.Evidence{{MessageID: "m1"}}

	a2 := atoms.New(atoms.KindFact, "  THE   rate limit IS 100 RPS ")
	a2.Topic = "api"
	a2.Evidence = []atoms.Evidence{{MessageID: "m2"}}

	writeConvAtoms(t, root, "conv_a", []atoms.Atom{a1})
	writeConvAtoms(t, root, "conv_b", []atoms.Atom{a2})

	c := &Consolidator{AtomsRoot: root}
	merged, result, err := c.Run()
	require.NoError(t, err)

	require.Len(t, merged, 1)
	assert.Equal(t, 2, result.InputCount)
	assert.Equal(t, 1, result.OutputCount)
	assert.Equal(t, 1, result.ByKind[atoms.KindFact])
	assert.Len(t, merged[0].Evidence, 2)
	assert.Equal(t, "conv_a", merged[0].Evidence[0].ConversationID)
	assert.Equal(t, "conv_b", merged[0].Evidence[1].ConversationID)
}

func TestRunKeepsDistinctTopicsSeparate(t *testing.T) {
	root := t.TempDir()
	a1 := atoms.New(atoms.KindFact, "same statement")
	a1.Topic = "billing"
	a1.Evidence = []atoms.Evidence{{MessageID: "m1"}}
	a2 := atoms.New(atoms.KindFact, "same statement")
	a2.Topic = "infra"
	a2.Evidence = []atoms.Evidence{{MessageID: "m2"}}

	writeConvAtoms(t, root, "conv_a", []atoms.Atom{a1, a2})

	c := &Consolidator{AtomsRoot: root}
	merged, result, err := c.Run()
	require.NoError(t, err)
	assert.Len(t, merged, 2)
	assert.Equal(t, 2, result.OutputCount)
}

func TestRunCapsEvidenceAtMaxEvidencePerItem(t *testing.T) {
	root := t.TempDir()
	a1 := atoms.New(atoms.KindFact, "capped statement")
	a1.Evidence = []atoms.Evidence{{MessageID: "m1"}, {MessageID: "m2"}}
	a2 := atoms.New(atoms.KindFact, "capped statement")
	a2.Evidence = []atoms.Evidence{{MessageID: "m3"}}

	writeConvAtoms(t, root, "conv_a", []atoms.Atom{a1})
	writeConvAtoms(t, root, "conv_b", []atoms.Atom{a2})

	c := &Consolidator{AtomsRoot: root, MaxEvidencePerItem: 2}
	merged, _, err := c.Run()
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Len(t, merged[0].Evidence, 2)
}

func TestRunMissingAtomsRootReturnsEmpty(t *testing.T) {
	c := &Consolidator{AtomsRoot: filepath.Join(t.TempDir(), "does-not-exist")}
	merged, result, err := c.Run()
	require.NoError(t, err)
	assert.Empty(t, merged)
	assert.Equal(t, 0, result.InputCount)
}
