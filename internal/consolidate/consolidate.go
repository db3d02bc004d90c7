// Package consolidate implements the Consolidator: it reduces every
// per-conversation atoms.jsonl into one project-wide atom store, deduping
// by composite key and merging evidence sets across conversations.
package consolidate

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"ckexporter/internal/atoms"
)

// Result summarizes one consolidation run for manifest reporting.
type Result struct {
	InputCount  int
	OutputCount int
	ByKind      map[atoms.Kind]int
}

// Consolidator reduces per-conversation atom stores into one project-wide
// store.
type Consolidator struct {
	// AtomsRoot holds one <conversation_id>/atoms.jsonl per conversation.
	AtomsRoot string
	// MaxEvidencePerItem caps merged evidence lists; 0 means unbounded.
	MaxEvidencePerItem int
}

// Run reads every conversation's atoms.jsonl under AtomsRoot (in
// lexicographic conversation-id order, so dedupe collisions always keep
// the first-seen atom deterministically), dedupes by composite key, and
// returns the merged atom list plus a summary.
func (c *Consolidator) Run() ([]atoms.Atom, Result, error) {
	convDirs, err := listConversationDirs(c.AtomsRoot)
	if err != nil {
		return nil, Result{}, err
	}

	byKey := map[atoms.CompositeKey]*atoms.Atom{}
	var order []atoms.CompositeKey
	result := Result{ByKind: map[atoms.Kind]int{}}

	for _, convID := range convDirs {
		atomList, err := readAtomsFile(filepath.Join(c.AtomsRoot, convID, "atoms.jsonl"))
		if err != nil {
			return nil, Result{}, fmt.Errorf("read atoms for %q: %w", convID, err)
		}
		for _, a := range atomList {
			result.InputCount++
			a.WithEvidenceConversationID(convID)
			key := a.Key()
			if existing, ok := byKey[key]; ok {
				existing.MergeEvidence(a.Evidence, c.MaxEvidencePerItem)
				continue
			}
			stored := a
			byKey[key] = &stored
			order = append(order, key)
		}
	}

	merged := make([]atoms.Atom, 0, len(order))
	for _, key := range order {
		a := *byKey[key]
		merged = append(merged, a)
		result.OutputCount++
		result.ByKind[a.Kind]++
	}

	return merged, result, nil
}

// listConversationDirs returns conversation-id directory names under root
// that contain an atoms.jsonl, sorted lexicographically.
func listConversationDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", root, err)
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), "atoms.jsonl")); err == nil {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ReadAtomsFile reads one atom-per-line JSONL file, the shape both a
// per-conversation atoms.jsonl and the consolidated project/atoms.jsonl
// share.
func ReadAtomsFile(path string) ([]atoms.Atom, error) {
	return readAtomsFile(path)
}

func readAtomsFile(path string) ([]atoms.Atom, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []atoms.Atom
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var a atoms.Atom
		if err := json.Unmarshal(line, &a); err != nil {
			return nil, fmt.Errorf("parse atom line: %w", err)
		}
		out = append(out, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
