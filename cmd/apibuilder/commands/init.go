package commands

import (
	"fmt"

	"git.home.luguber.info/inful/apibuilder/internal/config"
	aerrors "git.home.luguber.info/inful/apibuilder/internal/errors"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	_, _ = fmt.Fprintf(g.out(), "Writing configuration to %s\n", root.Config)
	if err := config.Init(root.Config, i.Force); err != nil {
		return aerrors.Wrap(err, aerrors.CategoryConfig, aerrors.SeverityFatal, "initialization failed")
	}
	_, _ = fmt.Fprintln(g.out(), "initialized successfully")
	return nil
}
