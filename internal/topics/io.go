package topics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func atomicWriteJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "topics-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

func atomicWriteJSONL[T any](path string, items []T) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "topics-*.jsonl.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	enc := json.NewEncoder(tmp)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			tmp.Close()
			return fmt.Errorf("encode: %w", err)
		}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// WriteRegistry writes the topic registry as indented JSON to
// <outDir>/topics.json.
func WriteRegistry(outDir string, registry Registry) error {
	return atomicWriteJSON(filepath.Join(outDir, "topics.json"), registry)
}

// ReadRegistry reads a previously written topic registry.
func ReadRegistry(outDir string) (Registry, error) {
	data, err := os.ReadFile(filepath.Join(outDir, "topics.json"))
	if err != nil {
		return Registry{}, err
	}
	var registry Registry
	if err := json.Unmarshal(data, &registry); err != nil {
		return Registry{}, fmt.Errorf("parse topic registry: %w", err)
	}
	return registry, nil
}

// WriteAssignments writes one assignment per line to
// <outDir>/assignments.jsonl.
func WriteAssignments(outDir string, assignments []Assignment) error {
	return atomicWriteJSONL(filepath.Join(outDir, "assignments.jsonl"), assignments)
}

// WriteReviewQueue writes the flagged-assignment queue to
// <outDir>/review_queue.jsonl. A nil or empty queue still writes an empty
// file so downstream tooling can rely on the file's presence.
func WriteReviewQueue(outDir string, items []ReviewItem) error {
	return atomicWriteJSONL(filepath.Join(outDir, "review_queue.jsonl"), items)
}
