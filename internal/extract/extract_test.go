package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ckexporter/internal/chunking"
	"ckexporter/internal/conversation"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		FastModel:           "gpt-4o-mini",
		BigModel:            "gpt-4o",
		ChunkMaxTokens:      1800,
		ChunkOverlapTokens:  200,
		ChunkMaxConcurrency: 2,
		MaxEvidencePerItem:  10,
		AtomsRoot:           t.TempDir(),
		Tokenizer:           chunking.RuneTokenizer{},
	}
}

func TestRunTwoPassWritesAtomsFile(t *testing.T) {
	llm := &scriptedLLM{replies: []scriptedReply{
		// Pass 1 (one chunk).
		{text: `{"facts":[{"topic":"infra","statement":"We use Postgres.","evidence":["m1"]}],"decisions":[],"open_questions":[]}`},
		// Pass 2 refinement.
		{text: `{"facts":[{"topic":"infra","statement":"We use Postgres for storage.","evidence":["m1"]}],"decisions":[],"open_questions":[]}`},
	}}

	opts := testOptions(t)
	x := &Extractor{Chat: llm, Opts: opts}

	conv := &conversation.Conversation{ID: "conv-1", Title: "Infra chat"}
	messages := []conversation.Message{
		{ID: "m1", Role: conversation.RoleUser, Text: "We use Postgres."},
	}

	result, err := x.Run(context.Background(), conv, messages)
	require.NoError(t, err)
	assert.Equal(t, StateWritten, result.State)
	require.Len(t, result.Atoms, 1)
	assert.Equal(t, "We use Postgres for storage.", result.Atoms[0].Statement)

	path := AtomsPath(opts.AtomsRoot, "conv-1")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "We use Postgres for storage.")
}

func TestRunMeetingFastPathSkipsTwoPass(t *testing.T) {
	llm := &scriptedLLM{replies: []scriptedReply{
		{text: `{"atoms":[{"kind":"decision","statement":"Ship v2 next sprint.","evidence":[{"message_id":"m1"}]}]}`},
	}}

	opts := testOptions(t)
	x := &Extractor{Chat: llm, Opts: opts}

	conv := &conversation.Conversation{ID: "meeting__standup__abcd1234", Title: "Standup"}
	messages := []conversation.Message{
		{ID: "m1", Role: conversation.RoleSystem, Text: "### Next steps\n\n- [ ] Carol: ship v2\n"},
	}

	result, err := x.Run(context.Background(), conv, messages)
	require.NoError(t, err)
	assert.Equal(t, 1, llm.calls) // only the meeting fast-path call, no Pass 1/2.

	var statements []string
	for _, a := range result.Atoms {
		statements = append(statements, a.Statement)
	}
	assert.Contains(t, statements, "Ship v2 next sprint.")
	assert.Contains(t, statements, "Carol: ship v2") // deterministic action-item extractor still runs.
}

func TestRunSkipExistingShortCircuits(t *testing.T) {
	opts := testOptions(t)
	opts.SkipExisting = true

	dir := filepath.Join(opts.AtomsRoot, "conv-1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "atoms.jsonl"), []byte(`{"schema_version":2}`+"\n"), 0o644))

	llm := &scriptedLLM{} // no replies scripted; a call here would fail the test.
	x := &Extractor{Chat: llm, Opts: opts}

	conv := &conversation.Conversation{ID: "conv-1", Title: "Already done"}
	result, err := x.Run(context.Background(), conv, []conversation.Message{{ID: "m1", Role: conversation.RoleUser, Text: "hi"}})
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, StateWritten, result.State)
	assert.Equal(t, 0, llm.calls)
}
