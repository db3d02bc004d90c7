// Package chunking implements the token-bounded message chunker (§4.3) and
// the sentence-boundary-aware raw-text chunker the embedder uses (§4.6),
// behind one shared Tokenizer abstraction.
package chunking

import "unicode/utf8"

// Tokenizer estimates a token count for a string. Exact model match is not
// required — spec §4.3 only requires the same identifier be used
// consistently by the chunker and any length-aware prompts.
type Tokenizer interface {
	Count(s string) int
	Name() string
}

// RuneTokenizer counts unicode runes divided by an average
// characters-per-token ratio, a cheap approximation that does not require
// bundling a real BPE tokenizer.
type RuneTokenizer struct{}

func (RuneTokenizer) Count(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + 3) / 4
}

func (RuneTokenizer) Name() string { return "rune-approx" }

// TokenizerForModel returns the tokenizer to use for a given model
// identifier. Every model currently maps onto the same rune-approximation
// tokenizer; the indirection exists so a real BPE tokenizer can be wired in
// per-model without changing callers.
func TokenizerForModel(model string) Tokenizer {
	return RuneTokenizer{}
}
