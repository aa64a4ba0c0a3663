package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/apibuilder/internal/logfields"
	"git.home.luguber.info/inful/apibuilder/internal/observability"
	"git.home.luguber.info/inful/apibuilder/internal/unit"
)

// Options tunes phase execution.
type Options struct {
	// Concurrency bounds the units running at once within a phase; 0 runs all at once.
	Concurrency int
	// FailFast stops the run after the first phase with a failed unit.
	FailFast bool
}

// PhaseResult is the settled state of one phase.
type PhaseResult struct {
	Phase PhaseName
	// Succeeded keeps the input order.
	Succeeded []*unit.Descriptor
	// Failed is in settle order.
	Failed []*UnitError
	// Skipped units never entered this phase.
	Skipped []*unit.Descriptor
	// First is the first failure to settle, nil when every unit succeeded.
	First    *UnitError
	Duration time.Duration
}

// Err returns the first failure of the phase as an error, or nil.
func (r PhaseResult) Err() error {
	if r.First == nil {
		return nil
	}
	return r.First
}

// RunPhase runs phase.Fn for every unit concurrently and returns once every
// unit has settled. A failing unit never cancels its siblings. Units that
// have not started when ctx is canceled fail with the context error.
func RunPhase(ctx context.Context, phase Phase, units []*unit.Descriptor, opts Options, obs Observer) PhaseResult {
	if obs == nil {
		obs = NoopObserver{}
	}
	ctx = observability.WithPhase(ctx, string(phase.Name))
	obs.OnPhaseStart(phase.Name, len(units))
	observability.InfoContext(ctx, "Phase started", logfields.Units(len(units)))

	start := time.Now()
	ok := make([]bool, len(units))
	res := PhaseResult{Phase: phase.Name}
	var mu sync.Mutex

	var g errgroup.Group
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			uctx := observability.WithUnit(ctx, u.Name())
			t0 := time.Now()
			err := uctx.Err()
			if err == nil {
				err = phase.Fn(uctx, u)
			}
			dur := time.Since(t0)
			obs.OnUnitComplete(phase.Name, u, dur, err)

			if err == nil {
				observability.DebugContext(uctx, "Unit phase succeeded", logfields.DurationMS(float64(dur.Milliseconds())))
				ok[i] = true
				return nil
			}
			observability.ErrorContext(uctx, "Unit phase failed", logfields.Error(err))
			ue := &UnitError{Phase: phase.Name, Unit: u, Err: err}
			mu.Lock()
			res.Failed = append(res.Failed, ue)
			if res.First == nil {
				res.First = ue
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for i, u := range units {
		if ok[i] {
			res.Succeeded = append(res.Succeeded, u)
		}
	}
	res.Duration = time.Since(start)
	observability.InfoContext(ctx, "Phase completed",
		slog.Int("succeeded", len(res.Succeeded)),
		slog.Int("failed", len(res.Failed)),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	obs.OnPhaseComplete(res)
	return res
}
