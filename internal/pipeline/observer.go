package pipeline

import (
	"time"

	"git.home.luguber.info/inful/apibuilder/internal/unit"
)

// Observer receives phase lifecycle callbacks. OnUnitComplete is called from
// worker goroutines and must be safe for concurrent use.
type Observer interface {
	OnPhaseStart(phase PhaseName, units int)
	OnUnitComplete(phase PhaseName, u *unit.Descriptor, d time.Duration, err error)
	OnPhaseComplete(res PhaseResult)
}

// NoopObserver ignores every callback.
type NoopObserver struct{}

func (NoopObserver) OnPhaseStart(PhaseName, int)                                      {}
func (NoopObserver) OnUnitComplete(PhaseName, *unit.Descriptor, time.Duration, error) {}
func (NoopObserver) OnPhaseComplete(PhaseResult)                                      {}
