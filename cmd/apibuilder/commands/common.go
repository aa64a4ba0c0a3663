// Package commands implements the apibuilder subcommands.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/apibuilder/internal/config"
	aerrors "git.home.luguber.info/inful/apibuilder/internal/errors"
	"git.home.luguber.info/inful/apibuilder/internal/observability"
)

// Global carries state shared by every subcommand.
type Global struct {
	// Out receives command output meant for the user (not logs).
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"apibuilder.yaml"`
	Verbose   bool             `short:"v" help:"Enable verbose logging and tool output"`
	LogFormat string           `name:"log-format" help:"Log format (text|json); overrides logging.format"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" default:"1" help:"Bundle, roll up and extract every package"`
	Discover DiscoverCmd `cmd:"" help:"List the packages a build would process"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; sets up logging until the configuration is read.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(observability.NewLogger(os.Stderr, level, c.LogFormat))
	return nil
}

// loadConfig reads the configuration, applies the project root override and
// reconfigures logging from it. Flags win over logging settings in the file.
func (c *CLI) loadConfig(root string) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, aerrors.ConfigInvalid(c.Config, err)
	}
	cfg.WithProjectRoot(root)

	level := observability.ParseLevel(string(cfg.Logging.Level))
	if c.Verbose {
		level = slog.LevelDebug
	}
	format := string(cfg.Logging.Format)
	if c.LogFormat != "" {
		format = c.LogFormat
	}
	slog.SetDefault(observability.NewLogger(os.Stderr, level, format))
	return cfg, nil
}

// revalidate checks the configuration again after flag overrides.
func revalidate(cfg *config.Config) error {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return aerrors.Wrap(err, aerrors.CategoryValidation, aerrors.SeverityFatal, "invalid command line override")
	}
	return nil
}
