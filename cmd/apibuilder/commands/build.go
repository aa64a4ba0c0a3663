package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/apibuilder/internal/build"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Mode        string `help:"Override api.mode (update|check)"`
	Concurrency int    `help:"Override build.concurrency (0 runs every unit of a phase at once)" default:"-1"`
	FailFast    bool   `name:"fail-fast" help:"Stop after the first phase with a failed unit"`
	Root        string `help:"Override project_root"`

	service build.Service
}

func (b *BuildCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := root.loadConfig(b.Root)
	if err != nil {
		return err
	}
	if b.Mode != "" {
		cfg.API.Mode = b.Mode
	}
	if b.Concurrency >= 0 {
		cfg.Build.Concurrency = b.Concurrency
	}
	if b.FailFast {
		cfg.Build.FailFast = true
	}
	if err := revalidate(cfg); err != nil {
		return err
	}

	svc := b.service
	if svc == nil {
		svc = build.NewService()
	}
	res, err := svc.Run(ctx, build.Request{Config: cfg, Verbose: root.Verbose})
	if res != nil && res.Report != nil {
		_, _ = fmt.Fprintf(g.out(), "%s: %s\n", res.Status, res.Report.Summary())
		if res.ReportPath != "" {
			_, _ = fmt.Fprintf(g.out(), "report: %s\n", res.ReportPath)
		}
	}
	return err
}
