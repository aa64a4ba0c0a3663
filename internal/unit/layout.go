package unit

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Layout is the directory configuration every derivation is relative to.
// It is passed explicitly rather than read from process state so tests can
// point the pipeline at temporary trees.
type Layout struct {
	ProjectRoot     string // absolute
	SourceRoot      string // project relative, slash separated
	IntermediateDir string // project relative, slash separated
	OutputDir       string // project relative, slash separated
	EntryName       string
	SeparatorMode   SeparatorMode
}

// NewLayout resolves projectRoot to an absolute path and normalizes the other
// directories to project relative form. Absolute directories must live below
// the project root.
func NewLayout(projectRoot, sourceRoot, intermediateDir, outputDir string) (Layout, error) {
	if projectRoot == "" {
		projectRoot = "."
	}
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return Layout{}, fmt.Errorf("%w: project root %q: %w", ErrInvalidLayout, projectRoot, err)
	}

	l := Layout{ProjectRoot: root, EntryName: DefaultEntryName, SeparatorMode: SeparatorAll}
	for _, d := range []struct {
		field string
		in    string
		out   *string
	}{
		{"source root", sourceRoot, &l.SourceRoot},
		{"intermediate dir", intermediateDir, &l.IntermediateDir},
		{"output dir", outputDir, &l.OutputDir},
	} {
		rel, err := l.Rel(d.in)
		if err != nil {
			return Layout{}, fmt.Errorf("%w: %s: %w", ErrInvalidLayout, d.field, err)
		}
		if rel == "" {
			return Layout{}, fmt.Errorf("%w: %s must not be the project root", ErrInvalidLayout, d.field)
		}
		*d.out = rel
	}
	return l, nil
}

// WithNaming returns a copy of the layout with the given naming policy.
func (l Layout) WithNaming(entryName string, mode SeparatorMode) Layout {
	if entryName != "" {
		l.EntryName = entryName
	}
	if mode != "" {
		l.SeparatorMode = mode
	}
	return l
}

// Abs resolves a project relative path on disk.
func (l Layout) Abs(rel string) string {
	return filepath.Join(l.ProjectRoot, filepath.FromSlash(rel))
}

// SourceRootAbs is the absolute package-source root.
func (l Layout) SourceRootAbs() string {
	return l.Abs(l.SourceRoot)
}

// Rel converts p (absolute, or relative to the project root) into a clean,
// slash separated project relative path. The project root itself is "".
func (l Layout) Rel(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrOutsideRoot)
	}
	abs := p
	if !filepath.IsAbs(p) {
		abs = filepath.Join(l.ProjectRoot, p)
	}
	rel, err := filepath.Rel(l.ProjectRoot, abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrOutsideRoot, p, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is not below %s", ErrOutsideRoot, p, l.ProjectRoot)
	}
	return cleanRel(path.Clean(filepath.ToSlash(rel))), nil
}
