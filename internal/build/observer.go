package build

import (
	"errors"
	"time"

	"git.home.luguber.info/inful/apibuilder/internal/metrics"
	"git.home.luguber.info/inful/apibuilder/internal/pipeline"
	"git.home.luguber.info/inful/apibuilder/internal/report"
	"git.home.luguber.info/inful/apibuilder/internal/toolchain"
	"git.home.luguber.info/inful/apibuilder/internal/unit"
)

// reportObserver mirrors unit completions into the report and metrics as they settle.
type reportObserver struct {
	report   *report.BuildReport
	recorder metrics.Recorder
}

func (o *reportObserver) OnPhaseStart(pipeline.PhaseName, int) {}

func (o *reportObserver) OnUnitComplete(phase pipeline.PhaseName, u *unit.Descriptor, _ time.Duration, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultFailed
		if isCanceled(err) {
			result = metrics.ResultCanceled
		}
	}
	o.recorder.IncUnitResult(string(phase), result)

	o.report.UpdateUnit(u.Name(), func(ur *report.UnitResult) {
		ur.LastPhase = string(phase)
		if err == nil {
			return
		}
		ur.Status = report.StatusFailed
		if result == metrics.ResultCanceled {
			ur.Status = report.StatusCanceled
		}
		ur.Error = err.Error()
		var sc *toolchain.SurfaceChangeError
		if errors.As(err, &sc) {
			ur.Added = sc.Diff.Added
			ur.Removed = sc.Diff.Removed
		}
	})
}

func (o *reportObserver) OnPhaseComplete(res pipeline.PhaseResult) {
	o.recorder.ObservePhaseDuration(string(res.Phase), res.Duration)
}
