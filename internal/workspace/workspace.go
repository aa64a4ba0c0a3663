package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/apibuilder/internal/logfields"
	"git.home.luguber.info/inful/apibuilder/internal/unit"
)

// Manager handles the intermediate and output directories of a layout.
type Manager struct {
	layout           unit.Layout
	keepIntermediate bool
	prepared         bool
}

// NewManager creates a workspace manager. With keepIntermediate the
// intermediate directory survives Cleanup.
func NewManager(layout unit.Layout, keepIntermediate bool) *Manager {
	return &Manager{layout: layout, keepIntermediate: keepIntermediate}
}

// IntermediatePath is the absolute intermediate directory.
func (m *Manager) IntermediatePath() string { return m.layout.Abs(m.layout.IntermediateDir) }

// OutputPath is the absolute output directory.
func (m *Manager) OutputPath() string { return m.layout.Abs(m.layout.OutputDir) }

// Prepare ensures both directories exist. With clean the intermediate
// directory is emptied first.
func (m *Manager) Prepare(clean bool) error {
	tmp := m.IntermediatePath()
	if clean {
		if err := m.removeIntermediate(); err != nil {
			return err
		}
		slog.Info("Cleaned intermediate directory", logfields.Path(tmp))
	}
	for _, dir := range []string{tmp, m.OutputPath()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create workspace directory: %w", err)
		}
	}
	m.prepared = true
	slog.Debug("Workspace ready", slog.String("intermediate", tmp), slog.String("output", m.OutputPath()))
	return nil
}

// Cleanup removes the intermediate directory unless it is kept.
func (m *Manager) Cleanup() error {
	if !m.prepared {
		return nil
	}
	if m.keepIntermediate {
		slog.Debug("Keeping intermediate directory", logfields.Path(m.IntermediatePath()))
		return nil
	}
	if err := m.removeIntermediate(); err != nil {
		return err
	}
	slog.Info("Cleaned up intermediate directory", logfields.Path(m.IntermediatePath()))
	m.prepared = false
	return nil
}

func (m *Manager) removeIntermediate() error {
	tmp := m.IntermediatePath()
	if filepath.Clean(tmp) == filepath.Clean(m.layout.ProjectRoot) {
		return fmt.Errorf("refusing to remove project root %s", tmp)
	}
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}
	return nil
}
