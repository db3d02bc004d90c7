package consolidate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ckexporter/internal/atoms"
)

func TestWriteAtomsAndManifest(t *testing.T) {
	outDir := t.TempDir()
	merged := []atoms.Atom{atoms.New(atoms.KindFact, "a fact")}
	result := Result{InputCount: 2, OutputCount: 1, ByKind: map[atoms.Kind]int{atoms.KindFact: 1}}

	require.NoError(t, WriteAtoms(outDir, merged))
	require.NoError(t, WriteManifest(outDir, result))

	assert.FileExists(t, filepath.Join(outDir, "project", "atoms.jsonl"))
	manifest, err := os.ReadFile(filepath.Join(outDir, "project", "manifest.md"))
	require.NoError(t, err)
	assert.Contains(t, string(manifest), "Input atoms: 2")
	assert.Contains(t, string(manifest), "fact: 1")
}
