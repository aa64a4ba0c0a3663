package unit

import "errors"

var (
	// ErrOutsideRoot indicates an entry point does not live below the expected root directory.
	ErrOutsideRoot = errors.New("path outside root")

	// ErrEmptyName indicates an entry point normalizes to an empty package name
	// (an index file placed directly in the package-source root).
	ErrEmptyName = errors.New("empty package name")

	// ErrInvalidLayout indicates the root directory configuration is unusable.
	ErrInvalidLayout = errors.New("invalid layout")
)
