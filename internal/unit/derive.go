package unit

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// SeparatorMode selects how path separators in a package name become dots.
type SeparatorMode string

const (
	// SeparatorAll replaces every separator ("a/b/c" -> "a.b.c").
	SeparatorAll SeparatorMode = "all"
	// SeparatorFirst replaces only the first one ("a/b/c" -> "a.b/c"), the legacy naming.
	SeparatorFirst SeparatorMode = "first"
)

const (
	// DefaultEntryName is the conventional entry point base name.
	DefaultEntryName = "index"
	// DeclarationExt is the extension of emitted and rolled declaration files.
	DeclarationExt = ".d.ts"

	rollupPrefix = "rollup."
)

// ParsedPath is a relative path decomposed into directory, base, name and extension.
type ParsedPath struct {
	Dir  string // slash separated, "" at top level
	Base string
	Name string // Base without Ext
	Ext  string // final extension including the dot
}

// String joins the parts back into a slash separated path.
func (p ParsedPath) String() string {
	if p.Dir == "" {
		return p.Name + p.Ext
	}
	return p.Dir + "/" + p.Name + p.Ext
}

// Parse decomposes a relative path. Only the final extension is split off, so
// "types.d.ts" has Name "types.d" and Ext ".ts".
func Parse(rel string) ParsedPath {
	rel = filepath.ToSlash(rel)
	dir, base := path.Split(rel)
	dir = strings.TrimSuffix(dir, "/")

	ext := path.Ext(base)
	if ext == base {
		// dotfiles have no extension
		ext = ""
	}
	return ParsedPath{
		Dir:  dir,
		Base: base,
		Name: strings.TrimSuffix(base, ext),
		Ext:  ext,
	}
}

// Relative parses target relative to root. Both must be absolute or both relative.
func Relative(root, target string) (ParsedPath, error) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return ParsedPath{}, fmt.Errorf("%w: %s: %w", ErrOutsideRoot, target, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ParsedPath{}, fmt.Errorf("%w: %s is not below %s", ErrOutsideRoot, target, root)
	}
	return Parse(rel), nil
}

// DeriveName computes the logical package name from the source-root relative path.
// The entry file of a directory is named after the directory, any other file
// after "{dir}/{name}".
func DeriveName(out ParsedPath, entryName string) string {
	if entryName == "" {
		entryName = DefaultEntryName
	}
	if out.Name == entryName {
		return out.Dir
	}
	if out.Dir == "" {
		return out.Name
	}
	return out.Dir + "/" + out.Name
}

// SafeName converts a package name into its dot-joined, file-name-safe form.
func SafeName(name string, mode SeparatorMode) string {
	if mode == SeparatorFirst {
		return strings.Replace(name, "/", ".", 1)
	}
	return strings.ReplaceAll(name, "/", ".")
}

// RollupTarget computes where the flattened declaration file of a unit is written.
func RollupTarget(outputDir string, out ParsedPath, safeName string) ParsedPath {
	name := rollupPrefix + safeName
	return ParsedPath{
		Dir:  cleanRel(path.Join(filepath.ToSlash(outputDir), out.Dir)),
		Base: name + DeclarationExt,
		Name: name,
		Ext:  DeclarationExt,
	}
}

func cleanRel(p string) string {
	if p == "." {
		return ""
	}
	return p
}
