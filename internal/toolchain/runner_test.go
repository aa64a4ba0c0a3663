package toolchain

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner_ToolNotFound(t *testing.T) {
	err := ExecRunner{}.Run(context.Background(), Command{Argv: []string{"apibuilder-no-such-tool"}})
	require.ErrorIs(t, err, ErrToolNotFound)
}

func TestExecRunner_EmptyCommand(t *testing.T) {
	err := ExecRunner{}.Run(context.Background(), Command{})
	require.ErrorIs(t, err, ErrToolNotFound)
}

func TestExecRunner_FailureIncludesOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	cmd := Command{Argv: []string{"sh", "-c", "echo building; echo 'TS2304: Cannot find name' >&2; exit 3"}, Dir: t.TempDir()}

	err := ExecRunner{}.Run(context.Background(), cmd)
	require.ErrorIs(t, err, ErrToolFailed)
	assert.Contains(t, err.Error(), "building")
	assert.Contains(t, err.Error(), "TS2304")
}

func TestExecRunner_Success(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	err := ExecRunner{}.Run(context.Background(), Command{Argv: []string{"sh", "-c", "echo ok"}, Dir: t.TempDir()})
	require.NoError(t, err)
}

func TestExecRunner_Canceled(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ExecRunner{}.Run(ctx, Command{Argv: []string{"sh", "-c", "sleep 5"}, Dir: t.TempDir()})
	require.ErrorIs(t, err, context.Canceled)
}
