package toolchain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/apibuilder/internal/logfields"
	"git.home.luguber.info/inful/apibuilder/internal/unit"
)

// Bundler compiles one unit into a module bundle plus declaration files.
type Bundler interface {
	Bundle(ctx context.Context, d *unit.Descriptor) error
}

// RollupBundler runs rollup with the TypeScript plugin.
type RollupBundler struct {
	cfg    Config
	runner Runner
}

var _ Bundler = (*RollupBundler)(nil)

// NewRollupBundler creates a bundler; a nil runner uses ExecRunner.
func NewRollupBundler(cfg Config, runner Runner) *RollupBundler {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &RollupBundler{cfg: cfg.withDefaults(), runner: runner}
}

type typescriptOptions struct {
	TSConfig       string   `json:"tsconfig"`
	Declaration    bool     `json:"declaration"`
	DeclarationMap bool     `json:"declarationMap"`
	SourceMap      bool     `json:"sourceMap"`
	Include        []string `json:"include"`
	OutDir         string   `json:"outDir"`
	DeclarationDir string   `json:"declarationDir"`
}

// Args returns the bundler arguments for d, without the executable.
func (b *RollupBundler) Args(d *unit.Descriptor) ([]string, error) {
	opts, err := json.Marshal(typescriptOptions{
		TSConfig:       "./" + b.cfg.TSConfig,
		Declaration:    true,
		DeclarationMap: true,
		SourceMap:      true,
		Include:        []string{d.IncludeGlob()},
		OutDir:         d.IntermediateDir(),
		DeclarationDir: d.IntermediateDir(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode typescript plugin options: %w", err)
	}
	return []string{
		"--input", d.AbsolutePath(),
		"--format", "es",
		"--dir", d.IntermediateDir(),
		"--sourcemap",
		"--plugin", "typescript=" + string(opts),
	}, nil
}

// Bundle compiles d into the intermediate directory and checks that its
// declaration file was emitted.
func (b *RollupBundler) Bundle(ctx context.Context, d *unit.Descriptor) error {
	args, err := b.Args(d)
	if err != nil {
		return err
	}
	slog.Debug("Bundling unit", logfields.Unit(d.Name()), logfields.Path(d.SourcePath().String()))

	cmd := Command{Argv: argv(b.cfg.BundlerCommand, args...), Dir: b.cfg.Layout.ProjectRoot}
	if err := b.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("bundle %s: %w", d.Name(), err)
	}

	decl := d.IntermediateDeclaration()
	if _, err := os.Stat(b.cfg.Layout.Abs(decl)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDeclarationMissing, decl, err)
	}
	return nil
}
