// Package documents implements the compile stage: it walks the
// conversation export's companion docs tree for markdown files and folds
// them into the project's compiled output alongside the atom-bearing
// JSONL files the rest of the pipeline produces.
package documents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CompileMarkdown walks root recursively and splits every .md file it finds
// into two concatenated bodies: ADR documents (filename has the adrPrefix,
// matched case-insensitively) and everything else, each file preceded by a
// "<!-- SOURCE_FILE: <relative path> -->" marker. filepath.WalkDir visits
// each directory's entries in lexical order, so the concatenation order is
// deterministic across runs.
func CompileMarkdown(ctx context.Context, root, adrPrefix string) (docs string, adrs string, err error) {
	var docsBuilder, adrsBuilder strings.Builder

	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}

		marker := fmt.Sprintf("<!-- SOURCE_FILE: %s -->\n", rel)
		target := &docsBuilder
		if adrPrefix != "" && strings.HasPrefix(strings.ToLower(d.Name()), strings.ToLower(adrPrefix)) {
			target = &adrsBuilder
		}
		target.WriteString(marker)
		target.Write(content)
		target.WriteString("\n")
		return nil
	})
	if walkErr != nil {
		return "", "", walkErr
	}
	return docsBuilder.String(), adrsBuilder.String(), nil
}

// WriteFileAtomic writes content to path via a temp-file-then-rename
// sequence in the same directory, so a reader never observes a partial
// write. A non-empty content requirement is the caller's responsibility;
// this always writes, even when content is empty.
func WriteFileAtomic(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "compile-*.md.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %q: %w", path, err)
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
