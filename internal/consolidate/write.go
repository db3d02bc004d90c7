package consolidate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"ckexporter/internal/atoms"
)

// WriteAtoms atomically writes merged as <outDir>/project/atoms.jsonl.
func WriteAtoms(outDir string, merged []atoms.Atom) error {
	dir := filepath.Join(outDir, "project")
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
	for _, a := range merged {
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
	return os.Rename(tmpPath, filepath.Join(dir, "atoms.jsonl"))
}

// WriteManifest writes a manifest.md reporting input/output atom counts
// and a breakdown by kind.
func WriteManifest(outDir string, result Result) error {
	dir := filepath.Join(outDir, "project")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %q: %w", dir, err)
	}

	kinds := make([]string, 0, len(result.ByKind))
	for k := range result.ByKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	var b []byte
	b = append(b, fmt.Sprintf("# Consolidation manifest\n\n")...)
	b = append(b, fmt.Sprintf("- Input atoms: %d\n", result.InputCount)...)
	b = append(b, fmt.Sprintf("- Output atoms: %d\n\n", result.OutputCount)...)
	b = append(b, "## By kind\n\n"...)
	for _, k := range kinds {
		b = append(b, fmt.Sprintf("- %s: %d\n", k, result.ByKind[atoms.Kind(k)])...)
	}

	tmp, err := os.CreateTemp(dir, "manifest-*.md.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmpPath, filepath.Join(dir, "manifest.md"))
}
