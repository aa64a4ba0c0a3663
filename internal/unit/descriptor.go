package unit

import (
	"fmt"
	"path"
)

// Descriptor is one build unit. It is constructed once per discovered entry
// point and never mutated afterwards.
type Descriptor struct {
	absolutePath    string
	sourcePath      ParsedPath
	outputPath      ParsedPath
	name            string
	fileSafeName    string
	rollupTarget    ParsedPath
	intermediateDir string
}

// New derives a Descriptor for the entry point at absPath.
func New(layout Layout, absPath string) (*Descriptor, error) {
	src, err := Relative(layout.ProjectRoot, absPath)
	if err != nil {
		return nil, err
	}
	out, err := Relative(layout.SourceRootAbs(), absPath)
	if err != nil {
		return nil, err
	}

	name := DeriveName(out, layout.EntryName)
	if name == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyName, src)
	}
	safe := SafeName(name, layout.SeparatorMode)

	return &Descriptor{
		absolutePath:    absPath,
		sourcePath:      src,
		outputPath:      out,
		name:            name,
		fileSafeName:    safe,
		rollupTarget:    RollupTarget(layout.OutputDir, out, safe),
		intermediateDir: cleanRel(path.Join(layout.IntermediateDir, out.Dir)),
	}, nil
}

// AbsolutePath is the entry point location on disk.
func (d *Descriptor) AbsolutePath() string { return d.absolutePath }

// SourcePath is the entry point relative to the project root.
func (d *Descriptor) SourcePath() ParsedPath { return d.sourcePath }

// OutputPath is the entry point relative to the package-source root.
func (d *Descriptor) OutputPath() ParsedPath { return d.outputPath }

// Name is the logical package identifier, e.g. "widgets" or "widgets/helpers".
func (d *Descriptor) Name() string { return d.name }

// FileSafeName is Name with separators replaced by dots, used for report and model file names.
func (d *Descriptor) FileSafeName() string { return d.fileSafeName }

// RollupTarget is the location of the flattened declaration file.
func (d *Descriptor) RollupTarget() ParsedPath { return d.rollupTarget }

// IntermediateDir is where the bundle phase writes this unit's module, declarations and maps.
func (d *Descriptor) IntermediateDir() string { return d.intermediateDir }

// IntermediateDeclaration is the declaration file the bundle phase emits for the entry point.
func (d *Descriptor) IntermediateDeclaration() string {
	return path.Join(d.intermediateDir, d.outputPath.Name+DeclarationExt)
}

// IncludeGlob scopes compilation to the entry point's source directory.
func (d *Descriptor) IncludeGlob() string {
	return path.Join(d.sourcePath.Dir, "**", "*.ts")
}

func (d *Descriptor) String() string { return d.name }
