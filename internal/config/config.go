// Package config loads the apibuilder YAML configuration.
//
// A missing configuration file is not an error: every setting has a default,
// so a bare `apibuilder build` in a project with the conventional layout works.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/apibuilder/internal/unit"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "apibuilder.yaml"

// CurrentVersion is the configuration schema version.
const CurrentVersion = "1"

// ErrInvalid indicates a configuration value failed validation.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full apibuilder configuration.
type Config struct {
	Version string `yaml:"version"`
	// ProjectRoot is resolved relative to the configuration file's directory.
	ProjectRoot     string `yaml:"project_root"`
	SourceRoot      string `yaml:"source_root"`
	IntermediateDir string `yaml:"intermediate_dir"`
	OutputDir       string `yaml:"output_dir"`
	TSConfig        string `yaml:"tsconfig"`

	Discovery DiscoveryConfig `yaml:"discovery"`
	Naming    NamingConfig    `yaml:"naming"`
	API       APIConfig       `yaml:"api"`
	Build     BuildConfig     `yaml:"build"`
	Tools     ToolsConfig     `yaml:"tools"`
	Report    ReportConfig    `yaml:"report"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Notify    NotifyConfig    `yaml:"notify"`
	Logging   LoggingConfig   `yaml:"logging"`

	// baseDir anchors relative paths; the config file's directory or the working directory.
	baseDir string
	// source is the file the config was read from, empty for defaults.
	source string
}

// DiscoveryConfig controls entry point discovery.
type DiscoveryConfig struct {
	IgnorePrefix string   `yaml:"ignore_prefix"`
	Extensions   []string `yaml:"extensions,omitempty"`
}

// NamingConfig controls package name derivation.
type NamingConfig struct {
	EntryName        string `yaml:"entry_name"`
	SeparatorReplace string `yaml:"separator_replace"` // all|first
}

// APIConfig controls the API extraction phase.
type APIConfig struct {
	Mode      string `yaml:"mode"` // update|check
	ReportDir string `yaml:"report_dir,omitempty"`
}

// BuildConfig controls phase execution.
type BuildConfig struct {
	Concurrency      int  `yaml:"concurrency"` // 0 = all units at once
	FailFast         bool `yaml:"fail_fast"`
	Clean            bool `yaml:"clean"`
	KeepIntermediate bool `yaml:"keep_intermediate"`
}

// ToolsConfig holds the external tool command lines.
type ToolsConfig struct {
	Bundler   []string `yaml:"bundler"`
	Extractor []string `yaml:"extractor"`
}

// ReportConfig controls the build report file.
type ReportConfig struct {
	File string `yaml:"file,omitempty"` // default <output_dir>/build-report.json
}

// MetricsConfig controls Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// NotifyConfig controls build completion events.
type NotifyConfig struct {
	NATSURL   string `yaml:"nats_url,omitempty"`
	Subject   string `yaml:"subject,omitempty"`
	JetStream bool   `yaml:"jetstream,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads the configuration at path. A missing file yields the defaults.
// .env and .env.local next to the file are loaded first (existing environment
// variables win), then ${VAR} references in the YAML are expanded.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	loadEnvFiles(filepath.Dir(abs))

	cfg := Default()
	cfg.baseDir = filepath.Dir(abs)

	// #nosec G304 -- config path is user supplied by design
	data, err := os.ReadFile(abs)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		slog.Debug("No configuration file, using defaults", slog.String("path", abs))
	} else {
		cfg.source = abs
		dec := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(data))))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config file %s: %w", abs, err)
		}
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads .env.local then .env from dir. godotenv never overrides
// variables that are already set, so .env.local takes precedence over .env.
func loadEnvFiles(dir string) {
	for _, name := range []string{".env.local", ".env"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Warn("Failed to load env file", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		slog.Debug("Loaded environment variables", slog.String("path", p))
	}
}

// Source is the file the configuration was read from, empty when defaults were used.
func (c *Config) Source() string { return c.source }

// BaseDir anchors relative paths in the configuration.
func (c *Config) BaseDir() string {
	if c.baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
		return "."
	}
	return c.baseDir
}

// ProjectRootAbs resolves project_root against BaseDir.
func (c *Config) ProjectRootAbs() string {
	root := c.ProjectRoot
	if root == "" {
		root = "."
	}
	if filepath.IsAbs(root) {
		return filepath.Clean(root)
	}
	return filepath.Join(c.BaseDir(), root)
}

// Layout builds the unit layout described by the configuration.
func (c *Config) Layout() (unit.Layout, error) {
	l, err := unit.NewLayout(c.ProjectRootAbs(), c.SourceRoot, c.IntermediateDir, c.OutputDir)
	if err != nil {
		return unit.Layout{}, err
	}
	return l.WithNaming(c.Naming.EntryName, unit.SeparatorMode(c.Naming.SeparatorReplace)), nil
}

// ReportFile is the absolute build report path.
func (c *Config) ReportFile() string {
	f := c.Report.File
	if f == "" {
		f = filepath.Join(c.OutputDir, "build-report.json")
	}
	if filepath.IsAbs(f) {
		return f
	}
	return filepath.Join(c.ProjectRootAbs(), f)
}

// MetricsTextfile is the absolute metrics textfile path, empty when disabled.
func (c *Config) MetricsTextfile() string {
	if c.Metrics.Textfile == "" || filepath.IsAbs(c.Metrics.Textfile) {
		return c.Metrics.Textfile
	}
	return filepath.Join(c.ProjectRootAbs(), c.Metrics.Textfile)
}

// WithProjectRoot overrides project_root, resolving it against the working directory.
func (c *Config) WithProjectRoot(root string) *Config {
	if root == "" {
		return c
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	c.ProjectRoot = root
	return c
}
