package toolchain

import (
	"errors"
	"fmt"

	"git.home.luguber.info/inful/apibuilder/internal/surface"
)

var (
	// ErrToolNotFound indicates the configured tool executable is not on PATH.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolFailed indicates an external tool exited unsuccessfully.
	ErrToolFailed = errors.New("tool execution failed")

	// ErrDeclarationMissing indicates the compiler did not emit the unit's declaration file.
	ErrDeclarationMissing = errors.New("intermediate declaration missing")

	// ErrOutputMissing indicates a tool reported success but its output file is absent.
	ErrOutputMissing = errors.New("tool output missing")

	// ErrNotSelfContained indicates the rolled-up declaration still references other files.
	ErrNotSelfContained = errors.New("rolled-up declaration is not self-contained")

	// ErrSurfaceChanged indicates the extracted API differs from the checked-in baseline.
	ErrSurfaceChanged = errors.New("API surface changed")
)

// SurfaceChangeError carries the signature diff of a unit whose API report
// no longer matches its baseline.
type SurfaceChangeError struct {
	Unit     string
	Baseline string
	Diff     surface.Diff
}

func (e *SurfaceChangeError) Error() string {
	return fmt.Sprintf("%s: %s: %d added, %d removed (baseline %s)\n%s",
		ErrSurfaceChanged, e.Unit, len(e.Diff.Added), len(e.Diff.Removed), e.Baseline, e.Diff.Unified)
}

func (e *SurfaceChangeError) Unwrap() error { return ErrSurfaceChanged }
