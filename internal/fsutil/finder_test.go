package fsutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested", "deeper"), 0o755))
	for _, name := range []string{"a.hcl", "b.txt", "nested/c.hcl", "nested/deeper/d.hcl", "nested/e.hcl.bak"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	// --- Act ---
	files, err := FindFilesByExtension(dir, ".hcl")

	// --- Assert ---
	require.NoError(t, err)
	sort.Strings(files)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.hcl"),
		filepath.Join(dir, "nested", "c.hcl"),
		filepath.Join(dir, "nested", "deeper", "d.hcl"),
	}, files)
}

func TestFindFilesByExtension_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := FindFilesByExtension(filepath.Join(t.TempDir(), "absent"), ".hcl")

	require.Error(t, err)
}

func TestFindFilesByExtension_EmptyExtensionPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { _, _ = FindFilesByExtension(t.TempDir(), "") })
}
