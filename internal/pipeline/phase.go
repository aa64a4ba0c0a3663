// Package pipeline runs build phases over a set of units with a hard barrier
// between phases: every unit of a phase settles before any unit of the next
// phase starts, and only the units that succeeded move on.
package pipeline

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/apibuilder/internal/unit"
)

// PhaseName is the typed identifier of a build phase.
type PhaseName string

const (
	PhaseBundle      PhaseName = "bundle"
	PhaseRollupTypes PhaseName = "rollup_types"
	PhaseExtractAPI  PhaseName = "extract_api"
)

// UnitFunc performs one phase for one unit.
type UnitFunc func(ctx context.Context, u *unit.Descriptor) error

// Phase pairs a phase name with its per-unit function.
type Phase struct {
	Name PhaseName
	Fn   UnitFunc
}

// Pipeline is a fluent builder for ordered phase definitions.
type Pipeline struct{ Defs []Phase }

// New creates an empty pipeline.
func New() *Pipeline { return &Pipeline{Defs: make([]Phase, 0, 3)} }

// Add appends a phase unconditionally.
func (p *Pipeline) Add(name PhaseName, fn UnitFunc) *Pipeline {
	p.Defs = append(p.Defs, Phase{Name: name, Fn: fn})
	return p
}

// Build returns a copy of the phase definitions.
func (p *Pipeline) Build() []Phase {
	out := make([]Phase, len(p.Defs))
	copy(out, p.Defs)
	return out
}

// UnitError is a failure of one unit in one phase.
type UnitError struct {
	Phase PhaseName
	Unit  *unit.Descriptor
	Err   error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Phase, e.Unit.Name(), e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }
