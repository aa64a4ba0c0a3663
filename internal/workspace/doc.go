// Package workspace manages the build's working directories below the project root.
//
// The intermediate directory is scratch space: it can be wiped before a run
// and is removed after a successful run unless it is kept for inspection.
// The output directory is persistent and is only ever created, never removed,
// since it may hold checked-in API report baselines.
package workspace
