package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/apibuilder/cmd/apibuilder/commands"
	aerrors "git.home.luguber.info/inful/apibuilder/internal/errors"
	"git.home.luguber.info/inful/apibuilder/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli commands.CLI
	parser := kong.Parse(&cli,
		kong.Name("apibuilder"),
		kong.Description("Bundle, roll up and extract the public API of every package in a TypeScript monorepo."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.Bind(&commands.Global{Out: os.Stdout}),
	)

	if err := parser.Run(&cli); err != nil {
		stop()
		aerrors.NewCLIErrorAdapter(cli.Verbose, nil).HandleError(err)
	}
}
