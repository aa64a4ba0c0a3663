package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/apibuilder/internal/unit"
)

func newLayout(t *testing.T) unit.Layout {
	t.Helper()
	l, err := unit.NewLayout(t.TempDir(), "src/packages", "temp", "out")
	require.NoError(t, err)
	return l
}

func TestManager_PrepareCreatesDirectories(t *testing.T) {
	l := newLayout(t)
	mgr := NewManager(l, false)

	require.NoError(t, mgr.Prepare(false))
	assert.DirExists(t, filepath.Join(l.ProjectRoot, "temp"))
	assert.DirExists(t, filepath.Join(l.ProjectRoot, "out"))
}

func TestManager_PrepareCleanWipesIntermediateOnly(t *testing.T) {
	l := newLayout(t)
	stale := filepath.Join(l.ProjectRoot, "temp", "widgets", "index.d.ts")
	baseline := filepath.Join(l.ProjectRoot, "out", "widgets.api.md")
	for _, f := range []string{stale, baseline} {
		require.NoError(t, os.MkdirAll(filepath.Dir(f), 0o750))
		require.NoError(t, os.WriteFile(f, []byte("x"), 0o600))
	}

	mgr := NewManager(l, false)
	require.NoError(t, mgr.Prepare(true))

	assert.NoFileExists(t, stale)
	assert.FileExists(t, baseline)
	assert.DirExists(t, mgr.IntermediatePath())
}

func TestManager_CleanupRemovesIntermediate(t *testing.T) {
	l := newLayout(t)
	mgr := NewManager(l, false)
	require.NoError(t, mgr.Prepare(false))

	sub := filepath.Join(mgr.IntermediatePath(), ".api-extractor", "widgets")
	require.NoError(t, os.MkdirAll(sub, 0o750))

	require.NoError(t, mgr.Cleanup())
	assert.NoDirExists(t, mgr.IntermediatePath())
	assert.DirExists(t, mgr.OutputPath())
}

func TestManager_KeepIntermediate(t *testing.T) {
	l := newLayout(t)
	mgr := NewManager(l, true)
	require.NoError(t, mgr.Prepare(false))

	require.NoError(t, mgr.Cleanup())
	assert.DirExists(t, mgr.IntermediatePath())
}

func TestManager_CleanupBeforePrepareIsNoop(t *testing.T) {
	l := newLayout(t)
	require.NoError(t, os.MkdirAll(filepath.Join(l.ProjectRoot, "temp"), 0o750))

	require.NoError(t, NewManager(l, false).Cleanup())
	assert.DirExists(t, filepath.Join(l.ProjectRoot, "temp"))
}
