package documents

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileMarkdownSeparatesADRsFromDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "overview.md"), []byte("# Overview"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "adr-001-storage.md"), []byte("# ADR 1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not markdown"), 0o644))

	docs, adrs, err := CompileMarkdown(context.Background(), dir, "adr-")
	require.NoError(t, err)
	assert.Contains(t, docs, "# Overview")
	assert.NotContains(t, docs, "ADR 1")
	assert.Contains(t, adrs, "# ADR 1")
	assert.Contains(t, docs, "SOURCE_FILE: overview.md")
}

func TestCompileMarkdownRecursesAndSkipsNonMarkdown(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "design.md"), []byte("# Design"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "binary.bin"), []byte("\x00\x01\x02"), 0o644))

	docs, _, err := CompileMarkdown(context.Background(), dir, "adr-")
	require.NoError(t, err)
	assert.Contains(t, docs, "# Design")
	assert.Contains(t, docs, filepath.Join("sub", "design.md"))
	assert.NotContains(t, docs, "\x00")
}

func TestCompileMarkdownEmptyDirYieldsEmptyStrings(t *testing.T) {
	dir := t.TempDir()
	docs, adrs, err := CompileMarkdown(context.Background(), dir, "adr-")
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Empty(t, adrs)
}

func TestWriteFileAtomicCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.md")
	require.NoError(t, WriteFileAtomic(path, "hello"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
