package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const exampleHeader = `# apibuilder configuration
#
# Paths are relative to project_root, which is relative to this file.
# ${VAR} references are expanded from the environment (.env and .env.local are loaded).
#
# api.mode: update rewrites the API report baselines; check fails units whose API changed.
# naming.separator_replace: all turns a/b/c into a.b.c; first gives the legacy a.b/c.
# build.concurrency: 0 runs every unit of a phase at once.
`

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	example := Default()
	example.Notify.Subject = "apibuilder.build.completed"

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append([]byte(exampleHeader+"\n"), data...), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
