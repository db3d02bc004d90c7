// Package pipeline provides the bounded-concurrency scaffolding shared by
// every stage: a conversation pool, a chunk pool, a topic-label pool, and
// one process-wide LLM in-flight semaphore, built on
// golang.org/x/sync/errgroup and golang.org/x/sync/semaphore rather than
// hand-rolled goroutine/channel bookkeeping (spec §9's design note calling
// out the source's ThreadPoolExecutor + global threading.Semaphore).
package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// LLMSemaphore is the process-wide bound on in-flight LLM requests across
// every pool (spec §5: llm_max_inflight, default 4 * max_conversations).
// Chat calls acquire it through the WithLLMSemaphore wrapper (llm.go), which
// releases it on every return path, including errors.
type LLMSemaphore struct {
	sem *semaphore.Weighted
}

// NewLLMSemaphore builds a semaphore bounding concurrent LLM calls to n.
func NewLLMSemaphore(n int) *LLMSemaphore {
	if n <= 0 {
		n = 1
	}
	return &LLMSemaphore{sem: semaphore.NewWeighted(int64(n))}
}

// Acquire blocks until a slot is free or ctx is done.
func (s *LLMSemaphore) Acquire(ctx context.Context) error {
	return s.sem.Acquire(ctx, 1)
}

// Release frees a slot. Must be called exactly once per successful Acquire.
func (s *LLMSemaphore) Release() {
	s.sem.Release(1)
}

// Pool runs a bounded number of concurrent tasks over a slice of items,
// preserving the items' original order in the returned results slice. The
// first error fn returns cancels the context handed to the items still
// running or not yet started, and Pool returns that error. Callers that
// want a failing item isolated from its siblings (spec §5/§7: "A
// conversation-level failure never cancels siblings") should swallow item
// errors inside fn and encode them in R, or use PoolIsolated.
func Pool[T, R any](ctx context.Context, bound int, items []T, fn func(context.Context, T, int) (R, error)) ([]R, error) {
	if bound <= 0 {
		bound = 1
	}
	results := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bound)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			r, err := fn(gctx, item, i)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// PoolIsolated is Pool but never aborts remaining items on a per-item
// error: fn is expected to handle its own errors internally and always
// return a usable R (e.g. an empty-shape result), matching the extractor's
// "errors in Pass 1 or Pass 2 transition to Written with best-effort
// content" policy.
func PoolIsolated[T, R any](ctx context.Context, bound int, items []T, fn func(context.Context, T, int) R) []R {
	if bound <= 0 {
		bound = 1
	}
	results := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bound)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i] = fn(gctx, item, i)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
