package extract

import (
	"context"
	"time"

	"ckexporter/internal/atoms"
	"ckexporter/internal/chunking"
	"ckexporter/internal/conversation"
	"ckexporter/internal/pipeline"
	"ckexporter/internal/ports"
)

// State is a conversation's position in the extractor's state machine
// (spec §4.4): Idle -> Linearized -> Chunked -> Pass1Running -> Pass1Done
// -> Pass2Running -> Written. Errors in Pass 1 or Pass 2 transition to
// Written with best-effort content; they never leave a conversation in a
// non-terminal state.
type State string

const (
	StateIdle         State = "idle"
	StateLinearized   State = "linearized"
	StateChunked      State = "chunked"
	StatePass1Running State = "pass1_running"
	StatePass1Done    State = "pass1_done"
	StatePass2Running State = "pass2_running"
	StateWritten      State = "written"
)

// Options bundles every extractor-tunable parameter spec §5/§6.3 names.
type Options struct {
	FastModel           string
	BigModel            string
	ChunkMaxTokens      int
	ChunkOverlapTokens  int
	ChunkMaxConcurrency int
	MaxEvidencePerItem  int
	SkipExisting        bool
	AtomsRoot           string
	Tokenizer           chunking.Tokenizer
}

// Extractor runs the full atom-extraction contract for one conversation at
// a time; callers fan this out across conversations with their own outer
// pool (see pipeline.Pool / cmd/ckexporter).
type Extractor struct {
	Chat ports.LLM
	Opts Options
}

// Result is what one conversation's extraction run produced, including its
// final state for observability/testing.
type Result struct {
	ConversationID string
	State          State
	Atoms          []atoms.Atom
	Skipped        bool
}

// Run executes the extractor's full state machine for one already-
// linearized conversation and writes atoms.jsonl. It never returns an
// error for upstream LLM/JSON failures (those degrade to best-effort
// content per spec §4.4/§7); the returned error is non-nil only for the
// final atomic-write failure, which does propagate.
func (x *Extractor) Run(ctx context.Context, conv *conversation.Conversation, messages []conversation.Message) (Result, error) {
	extractedAt := nowISO(time.Now())

	if x.Opts.SkipExisting && Exists(x.Opts.AtomsRoot, conv.ID) {
		return Result{ConversationID: conv.ID, State: StateWritten, Skipped: true}, nil
	}

	state := StateLinearized

	var universal []atoms.Atom

	if isMeetingConversation(conv.ID) {
		meta := ParseMeetingMetadata(conv.Title, messages)
		if meetingAtoms, ok := ExtractMeeting(ctx, x.Chat, x.Opts.BigModel, conv.ID, meta, messages); ok {
			universal = meetingAtoms
		}
	}

	if universal == nil {
		state = StateChunked
		chunks := chunking.ChunkMessages(x.Opts.Tokenizer, messages, x.Opts.ChunkMaxTokens, x.Opts.ChunkOverlapTokens)

		state = StatePass1Running
		pass1 := x.runPass1(ctx, chunks)

		state = StatePass1Done
		candidates := PreDedupe(reorderByChunkIndex(pass1), x.Opts.MaxEvidencePerItem)

		state = StatePass2Running
		refined := x.runPass2(ctx, candidates, conv.ID, conv.Title)

		idx := buildEvidenceIndex(conv.ID, messages)
		universal = ToUniversalAtoms(refined, conv.ID, idx, extractedAt)
	}

	actionItems := ExtractActionItems(conv.ID, messages, extractedAt)
	universal = append(universal, actionItems...)

	for i := range universal {
		universal[i].WithEvidenceConversationID(conv.ID)
	}

	state = StateWritten
	if err := WriteAtoms(x.Opts.AtomsRoot, conv.ID, universal); err != nil {
		return Result{ConversationID: conv.ID, State: state, Atoms: universal}, err
	}

	return Result{ConversationID: conv.ID, State: state, Atoms: universal}, nil
}

func isMeetingConversation(conversationID string) bool {
	return len(conversationID) >= len(MeetingPrefix) && conversationID[:len(MeetingPrefix)] == MeetingPrefix
}

// runPass1 fans out one LLM call per chunk, bounded by ChunkMaxConcurrency
// (the inner pool spec §4.4 requires). Each chunk's failure is isolated:
// LLMExtractor.ExtractFromChunk already degrades to an empty-shape result
// internally, so PoolIsolated never needs to special-case an error here.
func (x *Extractor) runPass1(ctx context.Context, chunks []chunking.MessageChunk) []indexedChunkAtoms {
	extractor := &LLMExtractor{Chat: x.Chat, FastModel: x.Opts.FastModel, BigModel: x.Opts.BigModel}

	results := pipeline.PoolIsolated(ctx, x.Opts.ChunkMaxConcurrency, chunks, func(ctx context.Context, c chunking.MessageChunk, _ int) indexedChunkAtoms {
		prompt := buildChunkPrompt(c.Messages)
		chunkAtoms, _ := extractor.ExtractFromChunk(ctx, prompt)
		return indexedChunkAtoms{index: c.Index, atoms: chunkAtoms}
	})
	return results
}

// runPass2 sends the pre-deduped candidate set to the big model once, per
// spec §4.4's single whole-conversation refinement call.
func (x *Extractor) runPass2(ctx context.Context, candidates ports.ChunkAtoms, conversationID, title string) ports.ChunkAtoms {
	extractor := &LLMExtractor{Chat: x.Chat, FastModel: x.Opts.FastModel, BigModel: x.Opts.BigModel}
	refined, _ := extractor.RefineAtoms(ctx, candidates, conversationID, title)
	return refined
}
