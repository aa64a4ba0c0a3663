// Package unit models build units: one discovered library entry point and every
// path and name the pipeline phases derive from it.
//
// Derivation is pure. Given the same Layout and absolute path, New always
// returns a Descriptor with identical fields, so descriptors can be shared
// across concurrently running phases without synchronization.
//
// All derived paths are relative to the project root and use forward slashes,
// because the external tools are run with the project root as their working
// directory. Layout.Abs resolves them on disk.
package unit
