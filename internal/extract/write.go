package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ckexporter/internal/atoms"
)

// AtomsPath returns <atomsRoot>/<conversationID>/atoms.jsonl.
func AtomsPath(atomsRoot, conversationID string) string {
	return filepath.Join(atomsRoot, conversationID, "atoms.jsonl")
}

// Exists reports whether a non-empty atoms.jsonl already exists for
// conversationID, the skip_existing short-circuit condition (spec §4.4).
func Exists(atomsRoot, conversationID string) bool {
	info, err := os.Stat(AtomsPath(atomsRoot, conversationID))
	return err == nil && info.Size() > 0
}

// WriteAtoms serializes atomList as newline-delimited JSON and writes it
// atomically: a temp file in the same directory, then an os.Rename. A
// write failure here propagates and fails the conversation (spec §7's
// "atoms.jsonl write failures" row), unlike every upstream LLM failure
// which degrades to best-effort content instead.
func WriteAtoms(atomsRoot, conversationID string, atomList []atoms.Atom) error {
	dir := filepath.Join(atomsRoot, conversationID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "atoms-*.jsonl.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	enc := json.NewEncoder(tmp)
	for _, a := range atomList {
		if err := enc.Encode(a); err != nil {
			tmp.Close()
			return fmt.Errorf("encode atom: %w", err)
		}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	finalPath := filepath.Join(dir, "atoms.jsonl")
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("rename %q -> %q: %w", tmpPath, finalPath, err)
	}
	return nil
}
