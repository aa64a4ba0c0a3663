package toolchain

import (
	"path"

	"git.home.luguber.info/inful/apibuilder/internal/unit"
)

// Mode selects how the API extractor treats the checked-in report.
type Mode string

const (
	// ModeUpdate rewrites the baseline report (local build).
	ModeUpdate Mode = "update"
	// ModeCheck fails a unit whose extracted surface differs from the baseline.
	ModeCheck Mode = "check"
)

// DefaultTSConfig is the compiler configuration shared by every unit.
const DefaultTSConfig = "tsconfig.json"

var (
	DefaultBundlerCommand   = []string{"npx", "rollup"}
	DefaultExtractorCommand = []string{"npx", "api-extractor"}
)

// Config is shared by the three phase implementations.
type Config struct {
	Layout unit.Layout
	// TSConfig is project relative.
	TSConfig string
	// ReportDir holds the API reports and models; project relative, defaults to the output directory.
	ReportDir string
	Mode      Mode
	Verbose   bool

	BundlerCommand   []string
	ExtractorCommand []string
}

func (c Config) withDefaults() Config {
	if c.TSConfig == "" {
		c.TSConfig = DefaultTSConfig
	}
	if c.ReportDir == "" {
		c.ReportDir = c.Layout.OutputDir
	}
	if c.Mode == "" {
		c.Mode = ModeUpdate
	}
	if len(c.BundlerCommand) == 0 {
		c.BundlerCommand = DefaultBundlerCommand
	}
	if len(c.ExtractorCommand) == 0 {
		c.ExtractorCommand = DefaultExtractorCommand
	}
	return c
}

// StagingDir is the per-unit extractor folder, relative to the project root.
func (c Config) StagingDir(d *unit.Descriptor) string {
	return path.Join(c.Layout.IntermediateDir, ".api-extractor", d.FileSafeName())
}

// ReportFile is the baseline API report of a unit, relative to the project root.
func (c Config) ReportFile(d *unit.Descriptor) string {
	return path.Join(c.withDefaults().ReportDir, d.FileSafeName()+".api.md")
}

// ModelFile is the API model of a unit, relative to the project root.
func (c Config) ModelFile(d *unit.Descriptor) string {
	return path.Join(c.withDefaults().ReportDir, d.FileSafeName()+".api.json")
}

func argv(base []string, args ...string) []string {
	out := make([]string, 0, len(base)+len(args))
	out = append(out, base...)
	return append(out, args...)
}
