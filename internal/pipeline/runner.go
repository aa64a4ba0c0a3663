package pipeline

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/apibuilder/internal/unit"
)

// Result is the outcome of a full run.
type Result struct {
	Phases []PhaseResult
	// Completed holds the units that passed every phase, in input order.
	Completed []*unit.Descriptor
	// Canceled is set when ctx ended before every phase ran.
	Canceled bool
}

// Failures returns every unit failure across all phases, in phase order.
func (r Result) Failures() []*UnitError {
	var out []*UnitError
	for _, p := range r.Phases {
		out = append(out, p.Failed...)
	}
	return out
}

// Runner executes phases in order with a barrier between them.
type Runner struct {
	phases   []Phase
	opts     Options
	observer Observer
}

// NewRunner creates a runner for the given ordered phases.
func NewRunner(phases []Phase, opts Options) *Runner {
	return &Runner{phases: phases, opts: opts, observer: NoopObserver{}}
}

// WithObserver installs a lifecycle observer.
func (r *Runner) WithObserver(o Observer) *Runner {
	if o != nil {
		r.observer = o
	}
	return r
}

// Run feeds units through every phase. Phase N+1 receives only the units that
// succeeded in phase N. The returned error is the first failure to settle in
// the earliest failing phase, or the context error when the run was canceled
// between phases.
func (r *Runner) Run(ctx context.Context, units []*unit.Descriptor) (Result, error) {
	var (
		res      Result
		firstErr error
		stopped  bool
	)
	remaining := units

	for _, ph := range r.phases {
		if !stopped && ctx.Err() != nil {
			res.Canceled = true
			stopped = true
			if firstErr == nil {
				firstErr = ctx.Err()
			}
		}
		if stopped || len(remaining) == 0 {
			res.Phases = append(res.Phases, PhaseResult{Phase: ph.Name, Skipped: units})
			remaining = nil
			continue
		}

		pr := RunPhase(ctx, ph, remaining, r.opts, r.observer)
		pr.Skipped = difference(units, remaining)
		res.Phases = append(res.Phases, pr)

		if pr.First != nil && firstErr == nil {
			firstErr = pr.First
		}
		remaining = pr.Succeeded
		if len(pr.Failed) > 0 && r.opts.FailFast {
			slog.Warn("Stopping after failed phase", slog.String("phase", string(ph.Name)))
			stopped = true
		}
	}

	if !stopped {
		res.Completed = remaining
	}
	if ctx.Err() != nil {
		res.Canceled = true
	}
	return res, firstErr
}

// difference returns the members of all that are not in subset, keeping order.
func difference(all, subset []*unit.Descriptor) []*unit.Descriptor {
	in := make(map[*unit.Descriptor]struct{}, len(subset))
	for _, u := range subset {
		in[u] = struct{}{}
	}
	var out []*unit.Descriptor
	for _, u := range all {
		if _, ok := in[u]; !ok {
			out = append(out, u)
		}
	}
	return out
}
