package extract

import (
	"sort"

	"ckexporter/internal/atoms"
	"ckexporter/internal/ports"
)

// rawKey is the local pre-dedupe key for a ports.RawAtom: facts/decisions
// key on (type, topic, normalize(statement)); questions key on
// (topic, normalize(question)) per spec §4.4.
type rawKey struct {
	kind  string
	topic string
	text  string
}

func factKey(kind string, r ports.RawAtom) rawKey {
	return rawKey{kind: kind, topic: r.Topic, text: atoms.NormalizeStatement(r.Statement)}
}

func questionKey(r ports.RawAtom) rawKey {
	return rawKey{kind: "open_question", topic: r.Topic, text: atoms.NormalizeStatement(r.Question)}
}

// mergeRawAtoms unions two RawAtom with the same key by concatenating and
// deduping their evidence strings, preserving the first non-empty
// topic/statement seen.
func mergeRawAtoms(into *ports.RawAtom, from ports.RawAtom, maxEvidence int) {
	seen := make(map[string]bool, len(into.Evidence))
	for _, e := range into.Evidence {
		seen[e] = true
	}
	for _, e := range from.Evidence {
		if seen[e] {
			continue
		}
		seen[e] = true
		into.Evidence = append(into.Evidence, e)
	}
	if maxEvidence > 0 && len(into.Evidence) > maxEvidence {
		into.Evidence = into.Evidence[:maxEvidence]
	}
}

// PreDedupe merges candidates across every Pass-1 chunk by composite key
// (spec §4.4), keeping each key at its first-seen position so the output
// handed to Pass 2 is deterministic. Chunks must already be ordered by
// index; PreDedupe does not
// re-sort chunk order itself (see reorderByChunkIndex).
func PreDedupe(chunkResults []ports.ChunkAtoms, maxEvidence int) ports.ChunkAtoms {
	factOrder := []rawKey{}
	facts := map[rawKey]ports.RawAtom{}
	decisionOrder := []rawKey{}
	decisions := map[rawKey]ports.RawAtom{}
	questionOrder := []rawKey{}
	questions := map[rawKey]ports.RawAtom{}

	for _, cr := range chunkResults {
		for _, r := range cr.Facts {
			k := factKey("fact", r)
			if existing, ok := facts[k]; ok {
				mergeRawAtoms(&existing, r, maxEvidence)
				facts[k] = existing
				continue
			}
			facts[k] = r
			factOrder = append(factOrder, k)
		}
		for _, r := range cr.Decisions {
			k := factKey("decision", r)
			if existing, ok := decisions[k]; ok {
				mergeRawAtoms(&existing, r, maxEvidence)
				decisions[k] = existing
				continue
			}
			decisions[k] = r
			decisionOrder = append(decisionOrder, k)
		}
		for _, r := range cr.OpenQuestions {
			k := questionKey(r)
			if existing, ok := questions[k]; ok {
				mergeRawAtoms(&existing, r, maxEvidence)
				questions[k] = existing
				continue
			}
			questions[k] = r
			questionOrder = append(questionOrder, k)
		}
	}

	out := ports.ChunkAtoms{
		Facts:         make([]ports.RawAtom, 0, len(factOrder)),
		Decisions:     make([]ports.RawAtom, 0, len(decisionOrder)),
		OpenQuestions: make([]ports.RawAtom, 0, len(questionOrder)),
	}
	for _, k := range factOrder {
		out.Facts = append(out.Facts, facts[k])
	}
	for _, k := range decisionOrder {
		out.Decisions = append(out.Decisions, decisions[k])
	}
	for _, k := range questionOrder {
		out.OpenQuestions = append(out.OpenQuestions, questions[k])
	}
	return out
}

// reorderByChunkIndex sorts Pass-1 results ascending by their originating
// chunk index so Pass-2 input is deterministic regardless of completion
// order under concurrency (spec §4.4's inner-pool requirement).
func reorderByChunkIndex(results []indexedChunkAtoms) []ports.ChunkAtoms {
	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })
	out := make([]ports.ChunkAtoms, len(results))
	for i, r := range results {
		out[i] = r.atoms
	}
	return out
}

type indexedChunkAtoms struct {
	index int
	atoms ports.ChunkAtoms
}
