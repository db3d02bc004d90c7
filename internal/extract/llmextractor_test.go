package extract

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ckexporter/internal/ports"
)

// scriptedLLM replays a fixed sequence of (text, error) replies, one per
// Chat call, so tests can exercise the repair-call and rejection-retry
// branches deterministically.
type scriptedLLM struct {
	replies []scriptedReply
	calls   int
}

type scriptedReply struct {
	text string
	err  error
}

func (s *scriptedLLM) Chat(ctx context.Context, model, system, user string, temperature float64, jsonObject bool, maxTokens int) (string, error) {
	if s.calls >= len(s.replies) {
		return "", fmt.Errorf("scriptedLLM: no more replies scripted")
	}
	r := s.replies[s.calls]
	s.calls++
	return r.text, r.err
}

func TestExtractFromChunkParsesDirectJSON(t *testing.T) {
	llm := &scriptedLLM{replies: []scriptedReply{
		{text: `{"facts":[{"topic":"infra","statement":"We use Postgres.","evidence":["m1"]}],"decisions":[],"open_questions":[]}`},
	}}
	x := &LLMExtractor{Chat: llm, FastModel: "gpt-4o-mini", BigModel: "gpt-4o"}

	got, err := x.ExtractFromChunk(context.Background(), "chunk text")
	require.NoError(t, err)
	require.Len(t, got.Facts, 1)
	assert.Equal(t, "We use Postgres.", got.Facts[0].Statement)
	assert.Equal(t, 1, llm.calls)
}

func TestExtractFromChunkRetriesOnResponseFormatRejection(t *testing.T) {
	llm := &scriptedLLM{replies: []scriptedReply{
		{err: fmt.Errorf("400 Bad Request: response_format not supported")},
		{text: `{"facts":[],"decisions":[{"topic":"x","statement":"Ship it.","evidence":["m2"]}],"open_questions":[]}`},
	}}
	x := &LLMExtractor{Chat: llm, FastModel: "gpt-4o-mini", BigModel: "gpt-4o"}

	got, err := x.ExtractFromChunk(context.Background(), "chunk text")
	require.NoError(t, err)
	require.Len(t, got.Decisions, 1)
	assert.Equal(t, 2, llm.calls)
}

func TestExtractFromChunkFallsBackToCodeBlock(t *testing.T) {
	llm := &scriptedLLM{replies: []scriptedReply{
		{text: "Here you go:\n```json\n{\"facts\":[{\"topic\":\"t\",\"statement\":\"s\",\"evidence\":[]}],\"decisions\":[],\"open_questions\":[]}\n```"},
	}}
	x := &LLMExtractor{Chat: llm, FastModel: "gpt-4o-mini", BigModel: "gpt-4o"}

	got, err := x.ExtractFromChunk(context.Background(), "chunk text")
	require.NoError(t, err)
	require.Len(t, got.Facts, 1)
}

func TestExtractFromChunkRepairCallThenGivesUp(t *testing.T) {
	llm := &scriptedLLM{replies: []scriptedReply{
		{text: "not json at all"},
		{text: "still not json"},
	}}
	x := &LLMExtractor{Chat: llm, FastModel: "gpt-4o-mini", BigModel: "gpt-4o"}

	got, err := x.ExtractFromChunk(context.Background(), "chunk text")
	require.NoError(t, err)
	assert.Empty(t, got.Facts)
	assert.Empty(t, got.Decisions)
	assert.Empty(t, got.OpenQuestions)
	assert.Equal(t, 2, llm.calls)
}

func TestRefineAtomsFallsBackOnNonJSONReply(t *testing.T) {
	llm := &scriptedLLM{replies: []scriptedReply{
		{text: "not a json object"},
	}}
	x := &LLMExtractor{Chat: llm, FastModel: "gpt-4o-mini", BigModel: "gpt-4o"}

	candidates := ports.ChunkAtoms{
		Facts: []ports.RawAtom{{Topic: "infra", Statement: "We use Postgres.", Evidence: []string{"m1"}}},
	}
	got, err := x.RefineAtoms(context.Background(), candidates, "conv-1", "Title")
	require.NoError(t, err)
	assert.Equal(t, candidates, got)
}
