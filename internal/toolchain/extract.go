package toolchain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"

	"git.home.luguber.info/inful/apibuilder/internal/logfields"
	"git.home.luguber.info/inful/apibuilder/internal/surface"
	"git.home.luguber.info/inful/apibuilder/internal/unit"
)

// Extractor produces the API report and API model for one unit.
type Extractor interface {
	Extract(ctx context.Context, d *unit.Descriptor) error
}

// APIExtractor runs api-extractor against a unit's rollup target.
//
// Each unit gets its own staging folder holding a generated extractor config
// and a package.json naming the package after the unit's file-safe name, so
// concurrent units never share a config, a temp report, or a package identity.
type APIExtractor struct {
	cfg    Config
	runner Runner
}

var _ Extractor = (*APIExtractor)(nil)

// NewAPIExtractor creates an extractor; a nil runner uses ExecRunner.
func NewAPIExtractor(cfg Config, runner Runner) *APIExtractor {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &APIExtractor{cfg: cfg.withDefaults(), runner: runner}
}

type extractorConfig struct {
	ProjectFolder          string          `json:"projectFolder"`
	MainEntryPointFilePath string          `json:"mainEntryPointFilePath"`
	Compiler               compilerConfig  `json:"compiler"`
	APIReport              apiReportConfig `json:"apiReport"`
	DocModel               docModelConfig  `json:"docModel"`
	DtsRollup              toggle          `json:"dtsRollup"`
	TSDocMetadata          toggle          `json:"tsdocMetadata"`
}

type compilerConfig struct {
	TSConfigFilePath string `json:"tsconfigFilePath"`
}

type apiReportConfig struct {
	Enabled          bool   `json:"enabled"`
	ReportFileName   string `json:"reportFileName"`
	ReportFolder     string `json:"reportFolder"`
	ReportTempFolder string `json:"reportTempFolder"`
}

type docModelConfig struct {
	Enabled         bool   `json:"enabled"`
	APIJSONFilePath string `json:"apiJsonFilePath"`
}

type toggle struct {
	Enabled bool `json:"enabled"`
}

type packageManifest struct {
	Name string `json:"name"`
}

// Stage writes the unit's extractor config and package manifest and returns
// the config path relative to the project root.
func (x *APIExtractor) Stage(d *unit.Descriptor) (string, error) {
	layout := x.cfg.Layout
	staging := x.cfg.StagingDir(d)
	stagingAbs := layout.Abs(staging)
	if err := os.MkdirAll(stagingAbs, 0o750); err != nil {
		return "", fmt.Errorf("create extractor staging dir: %w", err)
	}
	if err := os.MkdirAll(layout.Abs(x.cfg.ReportDir), 0o750); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	conf := extractorConfig{
		ProjectFolder:          layout.ProjectRoot,
		MainEntryPointFilePath: layout.Abs(d.RollupTarget().String()),
		Compiler:               compilerConfig{TSConfigFilePath: layout.Abs(x.cfg.TSConfig)},
		APIReport: apiReportConfig{
			Enabled:          true,
			ReportFileName:   d.FileSafeName() + ".api.md",
			ReportFolder:     layout.Abs(x.cfg.ReportDir),
			ReportTempFolder: stagingAbs,
		},
		DocModel: docModelConfig{
			Enabled:         true,
			APIJSONFilePath: layout.Abs(x.cfg.ModelFile(d)),
		},
	}
	configPath := path.Join(staging, "api-extractor.json")
	if err := writeJSON(layout.Abs(configPath), conf); err != nil {
		return "", err
	}
	if err := writeJSON(layout.Abs(path.Join(staging, "package.json")), packageManifest{Name: d.FileSafeName()}); err != nil {
		return "", err
	}
	return configPath, nil
}

// Args returns the extractor arguments for a staged config, without the executable.
func (x *APIExtractor) Args(configPath string) []string {
	args := []string{"run", "--config", configPath}
	if x.cfg.Mode != ModeCheck {
		args = append(args, "--local")
	}
	if x.cfg.Verbose {
		args = append(args, "--verbose")
	}
	return args
}

// Extract runs the API extractor for d. In check mode the freshly generated
// report is compared with the checked-in baseline and any surface change
// fails the unit with a *SurfaceChangeError.
func (x *APIExtractor) Extract(ctx context.Context, d *unit.Descriptor) error {
	target := d.RollupTarget().String()
	if _, err := os.Stat(x.cfg.Layout.Abs(target)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOutputMissing, target, err)
	}

	configPath, err := x.Stage(d)
	if err != nil {
		return err
	}
	slog.Debug("Extracting API", logfields.Unit(d.Name()), logfields.SafeName(d.FileSafeName()), slog.String("mode", string(x.cfg.Mode)))

	cmd := Command{Argv: argv(x.cfg.ExtractorCommand, x.Args(configPath)...), Dir: x.cfg.Layout.ProjectRoot}
	runErr := x.runner.Run(ctx, cmd)
	if runErr != nil && ctx.Err() != nil {
		return runErr
	}

	if x.cfg.Mode == ModeCheck {
		if err := x.checkSurface(d); err != nil {
			if runErr != nil && errors.Is(err, ErrOutputMissing) {
				return fmt.Errorf("extract api %s: %w", d.Name(), runErr)
			}
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("extract api %s: %w", d.Name(), runErr)
	}

	model := x.cfg.ModelFile(d)
	if _, err := os.Stat(x.cfg.Layout.Abs(model)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOutputMissing, model, err)
	}
	return nil
}

func (x *APIExtractor) checkSurface(d *unit.Descriptor) error {
	baseline := x.cfg.ReportFile(d)
	candidate := path.Join(x.cfg.StagingDir(d), d.FileSafeName()+".api.md")

	diff, err := surface.CompareFiles(x.cfg.Layout.Abs(baseline), x.cfg.Layout.Abs(candidate))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrOutputMissing, candidate)
		}
		return fmt.Errorf("compare api report: %w", err)
	}
	if diff.Changed {
		return &SurfaceChangeError{Unit: d.Name(), Baseline: baseline, Diff: diff}
	}
	return nil
}

func writeJSON(p string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", p, err)
	}
	if err := os.WriteFile(p, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}
