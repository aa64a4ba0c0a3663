package config

import (
	"path"
	"strings"

	"git.home.luguber.info/inful/apibuilder/internal/discovery"
	"git.home.luguber.info/inful/apibuilder/internal/toolchain"
	"git.home.luguber.info/inful/apibuilder/internal/unit"
)

// Default returns the configuration used when no file is present. It matches
// the conventional layout: sources in src/packages, scratch in temp, results in out.
func Default() *Config {
	return &Config{
		Version:         CurrentVersion,
		ProjectRoot:     ".",
		SourceRoot:      "src/packages",
		IntermediateDir: "temp",
		OutputDir:       "out",
		TSConfig:        toolchain.DefaultTSConfig,
		Discovery:       DiscoveryConfig{IgnorePrefix: discovery.DefaultIgnorePrefix},
		Naming:          NamingConfig{EntryName: unit.DefaultEntryName, SeparatorReplace: string(unit.SeparatorAll)},
		API:             APIConfig{Mode: string(toolchain.ModeUpdate)},
		Build:           BuildConfig{KeepIntermediate: true},
		Tools: ToolsConfig{
			Bundler:   append([]string(nil), toolchain.DefaultBundlerCommand...),
			Extractor: append([]string(nil), toolchain.DefaultExtractorCommand...),
		},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}
}

// Normalize case-folds enumerations and fills blanks left by an explicit empty value.
func (c *Config) Normalize() {
	d := Default()
	if c.Version == "" {
		c.Version = CurrentVersion
	}
	c.SourceRoot = cleanDir(c.SourceRoot)
	c.IntermediateDir = cleanDir(c.IntermediateDir)
	c.OutputDir = cleanDir(c.OutputDir)
	if c.TSConfig == "" {
		c.TSConfig = d.TSConfig
	}
	if c.Discovery.IgnorePrefix == "" {
		c.Discovery.IgnorePrefix = d.Discovery.IgnorePrefix
	}
	for i, ext := range c.Discovery.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Discovery.Extensions[i] = ext
	}
	if c.Naming.EntryName == "" {
		c.Naming.EntryName = d.Naming.EntryName
	}
	c.Naming.SeparatorReplace = strings.ToLower(strings.TrimSpace(c.Naming.SeparatorReplace))
	if c.Naming.SeparatorReplace == "" {
		c.Naming.SeparatorReplace = d.Naming.SeparatorReplace
	}
	c.API.Mode = strings.ToLower(strings.TrimSpace(c.API.Mode))
	if c.API.Mode == "" {
		c.API.Mode = d.API.Mode
	}
	c.API.ReportDir = cleanDir(c.API.ReportDir)
	if len(c.Tools.Bundler) == 0 {
		c.Tools.Bundler = d.Tools.Bundler
	}
	if len(c.Tools.Extractor) == 0 {
		c.Tools.Extractor = d.Tools.Extractor
	}
	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
}

func cleanDir(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}
