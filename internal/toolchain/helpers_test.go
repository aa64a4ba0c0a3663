package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/apibuilder/internal/unit"
)

// fakeRunner records commands and runs an optional side effect instead of a process.
type fakeRunner struct {
	mu    sync.Mutex
	calls []Command
	fn    func(cmd Command) error
}

func (f *fakeRunner) Run(_ context.Context, cmd Command) error {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()
	if f.fn == nil {
		return nil
	}
	return f.fn(cmd)
}

func (f *fakeRunner) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

func testLayout(t *testing.T) unit.Layout {
	t.Helper()
	l, err := unit.NewLayout(t.TempDir(), "src/packages", "temp", "out")
	require.NoError(t, err)
	return l
}

func testUnit(t *testing.T, l unit.Layout, rel string) *unit.Descriptor {
	t.Helper()
	abs := filepath.Join(l.SourceRootAbs(), filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o750))
	require.NoError(t, os.WriteFile(abs, []byte("export const x = 1;\n"), 0o600))
	d, err := unit.New(l, abs)
	require.NoError(t, err)
	return d
}

func writeRel(t *testing.T, l unit.Layout, rel, content string) {
	t.Helper()
	abs := l.Abs(rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o750))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o600))
}

// flagValue returns the argument following flag, or "" when absent.
func flagValue(argv []string, flag string) string {
	for i := 0; i < len(argv)-1; i++ {
		if argv[i] == flag {
			return argv[i+1]
		}
	}
	return ""
}
