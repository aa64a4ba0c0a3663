package config

import (
	"fmt"
	"slices"
	"strings"

	"git.home.luguber.info/inful/apibuilder/internal/toolchain"
	"git.home.luguber.info/inful/apibuilder/internal/unit"
)

// Validate checks the configuration for values the build cannot run with.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %q (expected %s)", ErrInvalid, c.Version, CurrentVersion)
	}
	for field, v := range map[string]string{
		"source_root":      c.SourceRoot,
		"intermediate_dir": c.IntermediateDir,
		"output_dir":       c.OutputDir,
	} {
		if v == "" || v == "." {
			return fmt.Errorf("%w: %s is required", ErrInvalid, field)
		}
	}
	// Emitted files below source_root would be discovered as units, and
	// cleaning intermediate_dir must never reach sources or baselines.
	dirs := []struct{ field, path string }{
		{"source_root", c.SourceRoot},
		{"intermediate_dir", c.IntermediateDir},
		{"output_dir", c.OutputDir},
	}
	for i, a := range dirs {
		for _, b := range dirs[i+1:] {
			if isWithin(a.path, b.path) || isWithin(b.path, a.path) {
				return fmt.Errorf("%w: %s %q and %s %q must not overlap", ErrInvalid, a.field, a.path, b.field, b.path)
			}
		}
	}

	switch toolchain.Mode(c.API.Mode) {
	case toolchain.ModeUpdate, toolchain.ModeCheck:
	default:
		return fmt.Errorf("%w: api.mode %q (expected update or check)", ErrInvalid, c.API.Mode)
	}
	switch unit.SeparatorMode(c.Naming.SeparatorReplace) {
	case unit.SeparatorAll, unit.SeparatorFirst:
	default:
		return fmt.Errorf("%w: naming.separator_replace %q (expected all or first)", ErrInvalid, c.Naming.SeparatorReplace)
	}
	if strings.ContainsAny(c.Naming.EntryName, "/.") {
		return fmt.Errorf("%w: naming.entry_name %q must be a bare file name without extension", ErrInvalid, c.Naming.EntryName)
	}
	if slices.Contains(c.Discovery.Extensions, "") {
		return fmt.Errorf("%w: discovery.extensions contains an empty entry", ErrInvalid)
	}
	if c.Build.Concurrency < 0 {
		return fmt.Errorf("%w: build.concurrency must be >= 0, got %d", ErrInvalid, c.Build.Concurrency)
	}
	if slices.Contains(c.Tools.Bundler, "") || slices.Contains(c.Tools.Extractor, "") {
		return fmt.Errorf("%w: tool commands must not contain empty arguments", ErrInvalid)
	}
	if c.Notify.JetStream && c.Notify.NATSURL == "" {
		return fmt.Errorf("%w: notify.jetstream requires notify.nats_url", ErrInvalid)
	}
	if _, err := c.Layout(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// isWithin reports whether child equals parent or lives below it (slash paths).
func isWithin(child, parent string) bool {
	return child == parent || strings.HasPrefix(child, parent+"/")
}
