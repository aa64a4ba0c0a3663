// Package discovery turns a package-source tree into the ordered list of build units.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/apibuilder/internal/logfields"
	"git.home.luguber.info/inful/apibuilder/internal/unit"
)

// DefaultIgnorePrefix marks private modules that are never entry points.
const DefaultIgnorePrefix = "-"

var (
	// ErrWalkFailed indicates traversal of the package-source root failed.
	ErrWalkFailed = errors.New("package source walk failed")

	// ErrNameCollision indicates two entry points normalize to the same package or file-safe name.
	ErrNameCollision = errors.New("package name collision")
)

// Options controls which files become entry points.
type Options struct {
	// IgnorePrefix excludes files whose base name starts with it. Defaults to "-".
	IgnorePrefix string
	// Extensions, when non-empty, restricts entry points to these extensions (".ts").
	Extensions []string
}

// Discoverer walks the package-source root of a layout.
type Discoverer struct {
	layout unit.Layout
	opts   Options
}

// New creates a Discoverer for the given layout.
func New(layout unit.Layout, opts Options) *Discoverer {
	if opts.IgnorePrefix == "" {
		opts.IgnorePrefix = DefaultIgnorePrefix
	}
	return &Discoverer{layout: layout, opts: opts}
}

// Discover walks the whole source tree and returns one descriptor per entry
// point in lexical path order. Any walk error aborts discovery; no partial
// result is returned.
func (d *Discoverer) Discover(ctx context.Context) ([]*unit.Descriptor, error) {
	root := d.layout.SourceRootAbs()
	slog.Info("Discovering packages", logfields.Path(root))

	var units []*unit.Descriptor
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}
		if !d.accepts(entry.Name()) {
			slog.Debug("Skipping non-entry file", logfields.Path(path))
			return nil
		}

		desc, err := unit.New(d.layout, path)
		if err != nil {
			return err
		}
		units = append(units, desc)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrWalkFailed, root, err)
	}

	if err := checkUnique(units); err != nil {
		return nil, err
	}

	slog.Info("Packages discovered", logfields.Units(len(units)))
	return units, nil
}

func (d *Discoverer) accepts(base string) bool {
	if strings.HasPrefix(base, d.opts.IgnorePrefix) {
		return false
	}
	if len(d.opts.Extensions) == 0 {
		return true
	}
	ext := filepath.Ext(base)
	for _, allowed := range d.opts.Extensions {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}

// checkUnique rejects unit lists where two entry points share a name or a file-safe name.
// Output paths are namespaced by these names, so a duplicate would make two units
// write the same files.
func checkUnique(units []*unit.Descriptor) error {
	names := make(map[string]*unit.Descriptor, len(units))
	safe := make(map[string]*unit.Descriptor, len(units))
	for _, u := range units {
		if prev, ok := names[u.Name()]; ok {
			return fmt.Errorf("%w: %q from %s and %s", ErrNameCollision, u.Name(), prev.SourcePath(), u.SourcePath())
		}
		if prev, ok := safe[u.FileSafeName()]; ok {
			return fmt.Errorf("%w: file-safe name %q from %s and %s", ErrNameCollision, u.FileSafeName(), prev.SourcePath(), u.SourcePath())
		}
		names[u.Name()] = u
		safe[u.FileSafeName()] = u
	}
	return nil
}
