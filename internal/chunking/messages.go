package chunking

import "ckexporter/internal/conversation"

// MessageChunk is an ordered sub-sequence of messages whose estimated token
// sum is <= MaxTokens (a single oversized message forms its own chunk).
type MessageChunk struct {
	Index    int
	Messages []conversation.Message
}

// ChunkMessages implements spec §4.3's chunk_messages contract:
//  1. For each chunk except possibly the last, sum(tokens) <= maxTokens.
//  2. A message never splits: if tokens(m) > maxTokens, m is emitted alone.
//  3. Ordering is preserved.
//  4. Empty input yields empty output.
func ChunkMessages(tok Tokenizer, messages []conversation.Message, maxTokens, overlapTokens int) []MessageChunk {
	if len(messages) == 0 {
		return nil
	}
	if tok == nil {
		tok = RuneTokenizer{}
	}

	var chunks []MessageChunk
	var cur []conversation.Message
	curTokens := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		chunks = append(chunks, MessageChunk{Index: len(chunks), Messages: cur})
	}

	for _, m := range messages {
		mt := tok.Count(m.Text)

		if mt > maxTokens {
			flush()
			cur = nil
			curTokens = 0
			chunks = append(chunks, MessageChunk{Index: len(chunks), Messages: []conversation.Message{m}})
			continue
		}

		if curTokens+mt > maxTokens && len(cur) > 0 {
			flush()
			cur = overlapTail(cur, tok, overlapTokens)
			curTokens = sumTokens(tok, cur)
			// Drop carried-over messages from the front until m fits, so the
			// overlap never pushes a chunk past maxTokens.
			for len(cur) > 0 && curTokens+mt > maxTokens {
				curTokens -= tok.Count(cur[0].Text)
				cur = cur[1:]
			}
		}

		cur = append(cur, m)
		curTokens += mt
	}
	flush()

	return chunks
}

func sumTokens(tok Tokenizer, msgs []conversation.Message) int {
	total := 0
	for _, m := range msgs {
		total += tok.Count(m.Text)
	}
	return total
}

// overlapTail returns the trailing messages of prev whose cumulative token
// count is <= overlapTokens, preserving order, to carry forward as the seed
// of the next chunk.
func overlapTail(prev []conversation.Message, tok Tokenizer, overlapTokens int) []conversation.Message {
	if overlapTokens <= 0 || len(prev) == 0 {
		return nil
	}
	total := 0
	start := len(prev)
	for i := len(prev) - 1; i >= 0; i-- {
		t := tok.Count(prev[i].Text)
		if total+t > overlapTokens {
			break
		}
		total += t
		start = i
	}
	if start == len(prev) {
		return nil
	}
	out := make([]conversation.Message, len(prev)-start)
	copy(out, prev[start:])
	return out
}
