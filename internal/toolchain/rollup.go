package toolchain

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"git.home.luguber.info/inful/apibuilder/internal/logfields"
	"git.home.luguber.info/inful/apibuilder/internal/unit"
)

// DeclarationBundler collapses a unit's declarations into one self-contained file.
type DeclarationBundler interface {
	Rollup(ctx context.Context, d *unit.Descriptor) error
}

// DtsBundler runs rollup with the dts plugin.
type DtsBundler struct {
	cfg    Config
	runner Runner
}

var _ DeclarationBundler = (*DtsBundler)(nil)

// NewDtsBundler creates a declaration bundler; a nil runner uses ExecRunner.
func NewDtsBundler(cfg Config, runner Runner) *DtsBundler {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &DtsBundler{cfg: cfg.withDefaults(), runner: runner}
}

// Args returns the declaration bundler arguments for d, without the executable.
func (b *DtsBundler) Args(d *unit.Descriptor) []string {
	return []string{
		"--input", d.IntermediateDeclaration(),
		"--file", d.RollupTarget().String(),
		"--format", "es",
		"--plugin", "dts",
	}
}

// Rollup reads the unit's intermediate declaration and writes its rollup target.
func (b *DtsBundler) Rollup(ctx context.Context, d *unit.Descriptor) error {
	decl := d.IntermediateDeclaration()
	if _, err := os.Stat(b.cfg.Layout.Abs(decl)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDeclarationMissing, decl, err)
	}

	target := d.RollupTarget().String()
	targetAbs := b.cfg.Layout.Abs(target)
	if err := os.MkdirAll(filepath.Dir(targetAbs), 0o750); err != nil {
		return fmt.Errorf("create rollup directory: %w", err)
	}
	slog.Debug("Rolling up declarations", logfields.Unit(d.Name()), logfields.Path(target))

	cmd := Command{Argv: argv(b.cfg.BundlerCommand, b.Args(d)...), Dir: b.cfg.Layout.ProjectRoot}
	if err := b.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("rollup types %s: %w", d.Name(), err)
	}

	// #nosec G304 -- target is derived from the build layout
	content, err := os.ReadFile(targetAbs)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOutputMissing, target, err)
	}
	refs, err := ExternalReferences(content)
	if err != nil {
		return fmt.Errorf("scan %s: %w", target, err)
	}
	if len(refs) > 0 {
		return fmt.Errorf("%w: %s: %v", ErrNotSelfContained, target, refs)
	}
	return nil
}

var (
	referencePathRe = regexp.MustCompile(`^\s*///\s*<reference\s+path\s*=`)
	relativeSpecRe  = regexp.MustCompile(`(?:\bfrom\s*|\bimport\s*\(\s*|^\s*import\s+)["'](\.{1,2}/[^"']*)["']`)
)

// ExternalReferences returns the lines of a declaration file that still point
// at other local files: triple-slash path references and relative module
// specifiers. Package imports are allowed. Lines over 4 MiB fail the scan.
func ExternalReferences(content []byte) ([]string, error) {
	var refs []string
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if referencePathRe.MatchString(line) || relativeSpecRe.MatchString(line) {
			refs = append(refs, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return refs, nil
}
