// Package toolchain drives the external compiler, declaration bundler and API
// extractor for a single build unit. Each phase is a black-box tool invocation
// followed by a check of the files the next phase depends on.
package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"git.home.luguber.info/inful/apibuilder/internal/logfields"
)

// Command is one external tool invocation.
type Command struct {
	Argv []string // executable followed by its arguments
	Dir  string   // working directory
}

func (c Command) String() string { return strings.Join(c.Argv, " ") }

// Runner executes tool commands. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands as child processes and captures their output.
type ExecRunner struct{}

// Run executes cmd. Stdout is logged at debug and stderr at warn; on failure
// both streams are folded into the returned error.
func (ExecRunner) Run(ctx context.Context, cmd Command) error {
	if len(cmd.Argv) == 0 {
		return fmt.Errorf("%w: empty command", ErrToolNotFound)
	}
	tool := cmd.Argv[0]
	if _, err := exec.LookPath(tool); err != nil {
		return fmt.Errorf("%w: %w", ErrToolNotFound, err)
	}

	// #nosec G204 -- argv comes from configuration and derived unit paths
	c := exec.CommandContext(ctx, tool, cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	slog.Debug("Invoking tool", logfields.Tool(tool), logfields.Path(cmd.Dir), slog.String("args", cmd.String()))

	err := c.Run()

	outStr := stdout.String()
	errStr := stderr.String()
	if outStr != "" {
		slog.Debug("tool stdout", logfields.Tool(tool), slog.String("output", outStr))
	}
	if errStr != "" {
		slog.Warn("tool stderr", logfields.Tool(tool), slog.String("error_output", errStr))
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		output := errStr
		if output == "" {
			output = outStr
		} else if outStr != "" {
			output = outStr + "\n" + errStr
		}
		if output != "" {
			return fmt.Errorf("%w: %w: %s", ErrToolFailed, err, output)
		}
		return fmt.Errorf("%w: %w", ErrToolFailed, err)
	}
	return nil
}
