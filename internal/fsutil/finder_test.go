package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	return path
}

func TestResolveDocumentPath_SingleFile(t *testing.T) {
	t.Parallel()

	path := touch(t, t.TempDir(), "model.yaml")

	found, err := ResolveDocumentPath(path)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, found)
}

func TestResolveDocumentPath_RejectsOtherExtensions(t *testing.T) {
	t.Parallel()

	path := touch(t, t.TempDir(), "model.json")

	_, err := ResolveDocumentPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a yaml document")
}

func TestResolveDocumentPath_ExtensionCaseInsensitive(t *testing.T) {
	t.Parallel()

	// The same rule applies whether the file is named directly or found
	// by a directory scan.
	dir := t.TempDir()
	upper := touch(t, dir, "model.YAML")

	direct, err := ResolveDocumentPath(upper)
	require.NoError(t, err)
	assert.Equal(t, []string{upper}, direct)

	scanned, err := ResolveDocumentPath(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{upper}, scanned)
}

func TestResolveDocumentPath_DirectoryRecursesInOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	b := touch(t, dir, "b.yaml")
	a := touch(t, dir, "a.yml")
	nested := touch(t, dir, filepath.Join("sub", "c.yaml"))
	touch(t, dir, "ignored.txt")

	found, err := ResolveDocumentPath(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, nested}, found)
}

func TestResolveDocumentPath_Missing(t *testing.T) {
	t.Parallel()

	_, err := ResolveDocumentPath(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
