package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"git.home.luguber.info/inful/apibuilder/internal/discovery"
	aerrors "git.home.luguber.info/inful/apibuilder/internal/errors"
)

// DiscoverCmd implements the 'discover' command.
type DiscoverCmd struct {
	JSON bool   `name:"json" help:"Print the packages as JSON"`
	Root string `help:"Override project_root"`
}

// discoveredUnit is the listing shape of one package.
type discoveredUnit struct {
	Name         string `json:"name"`
	SafeName     string `json:"safe_name"`
	Source       string `json:"source"`
	Output       string `json:"output"`
	RollupTarget string `json:"rollup_target"`
}

func (d *DiscoverCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := root.loadConfig(d.Root)
	if err != nil {
		return err
	}
	layout, err := cfg.Layout()
	if err != nil {
		return aerrors.ConfigInvalid(root.Config, err)
	}

	units, err := discovery.New(layout, discovery.Options{
		IgnorePrefix: cfg.Discovery.IgnorePrefix,
		Extensions:   cfg.Discovery.Extensions,
	}).Discover(ctx)
	if err != nil {
		return aerrors.DiscoveryError(layout.SourceRootAbs(), err)
	}

	list := make([]discoveredUnit, 0, len(units))
	for _, u := range units {
		list = append(list, discoveredUnit{
			Name:         u.Name(),
			SafeName:     u.FileSafeName(),
			Source:       u.SourcePath().String(),
			Output:       u.OutputPath().String(),
			RollupTarget: u.RollupTarget().String(),
		})
	}

	if d.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}
	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tSAFE NAME\tSOURCE\tROLLUP")
	for _, u := range list {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.Name, u.SafeName, u.Source, u.RollupTarget)
	}
	return tw.Flush()
}
