package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(paths[i]), 0o750))
		require.NoError(t, os.WriteFile(paths[i], []byte("data"), 0o600))
	}
	return paths
}

func TestDiscover_Directory(t *testing.T) {
	dir := t.TempDir()
	paths := writeFiles(t, dir, "card.png", "scan.pdf", "notes.txt", "nested/deep.jpg")

	files, err := nameFilter{}.discover([]string{dir}, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{paths[0], paths[1]}, files)

	files, err = nameFilter{}.discover([]string{dir}, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{paths[0], paths[1], paths[3]}, files)
}

func TestDiscover_Patterns(t *testing.T) {
	dir := t.TempDir()
	paths := writeFiles(t, dir, "a_front.png", "a_back.png", "b_front.jpg")

	files, err := nameFilter{include: []string{"*_front.*"}}.discover([]string{dir}, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{paths[0], paths[2]}, files)

	files, err = nameFilter{exclude: []string{"*.jpg"}}.discover([]string{dir}, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{paths[0], paths[1]}, files)
}

func TestDiscover_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	paths := writeFiles(t, dir, "notes.txt")

	// Explicit files bypass the extension filter.
	files, err := nameFilter{}.discover(paths, false)
	require.NoError(t, err)
	assert.Equal(t, paths, files)

	_, err = nameFilter{}.discover([]string{filepath.Join(dir, "missing.png")}, false)
	assert.Error(t, err)
}

func TestCasesFromPaths(t *testing.T) {
	dir := t.TempDir()
	paths := writeFiles(t, dir, "one.png")

	cases, err := CasesFromPaths([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, Case{ID: paths[0], Front: paths[0]}, cases[0])
}

func TestDiscover_DeduplicatesAndSkipsHidden(t *testing.T) {
	dir := t.TempDir()
	paths := writeFiles(t, dir, "id.png", ".cache/thumb.png")

	files, err := nameFilter{}.discover([]string{dir, paths[0]}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{paths[0]}, files)
}

func TestNameFilter_ExcludeWins(t *testing.T) {
	f := nameFilter{include: []string{"*.png"}, exclude: []string{"draft_*"}}
	assert.True(t, f.accepts("/scans/final.png"))
	assert.False(t, f.accepts("/scans/draft_final.png"))
	assert.False(t, f.accepts("/scans/final.jpg"))
}
