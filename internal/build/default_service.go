package build

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/apibuilder/internal/config"
	"git.home.luguber.info/inful/apibuilder/internal/discovery"
	aerrors "git.home.luguber.info/inful/apibuilder/internal/errors"
	"git.home.luguber.info/inful/apibuilder/internal/logfields"
	"git.home.luguber.info/inful/apibuilder/internal/metrics"
	"git.home.luguber.info/inful/apibuilder/internal/notify"
	"git.home.luguber.info/inful/apibuilder/internal/observability"
	"git.home.luguber.info/inful/apibuilder/internal/pipeline"
	"git.home.luguber.info/inful/apibuilder/internal/report"
	"git.home.luguber.info/inful/apibuilder/internal/revision"
	"git.home.luguber.info/inful/apibuilder/internal/toolchain"
	"git.home.luguber.info/inful/apibuilder/internal/unit"
	"git.home.luguber.info/inful/apibuilder/internal/version"
	"git.home.luguber.info/inful/apibuilder/internal/workspace"
)

// Toolchain groups the three phase implementations.
type Toolchain struct {
	Bundler            toolchain.Bundler
	DeclarationBundler toolchain.DeclarationBundler
	Extractor          toolchain.Extractor
}

// ToolchainFactory builds the phase implementations for a run.
type ToolchainFactory func(cfg toolchain.Config) Toolchain

// RevisionDetector resolves the source revision of the project.
type RevisionDetector func(dir string) (revision.Info, bool, error)

// PublisherFactory opens the notification publisher for a run.
type PublisherFactory func(cfg *config.Config) (notify.Publisher, error)

// DefaultService is the standard implementation of Service.
// It orchestrates workspace → discovery → bundle → rollup_types → extract_api → report.
type DefaultService struct {
	toolchainFactory ToolchainFactory
	revisionDetector RevisionDetector
	publisherFactory PublisherFactory
	recorder         metrics.Recorder
}

var _ Service = (*DefaultService)(nil)

// NewService creates a DefaultService that drives the real tools.
func NewService() *DefaultService {
	return &DefaultService{
		toolchainFactory: ExecToolchain(nil),
		revisionDetector: revision.Detect,
		publisherFactory: natsPublisher,
	}
}

// ExecToolchain returns a factory running every tool through runner
// (nil means real child processes).
func ExecToolchain(runner toolchain.Runner) ToolchainFactory {
	return func(cfg toolchain.Config) Toolchain {
		return Toolchain{
			Bundler:            toolchain.NewRollupBundler(cfg, runner),
			DeclarationBundler: toolchain.NewDtsBundler(cfg, runner),
			Extractor:          toolchain.NewAPIExtractor(cfg, runner),
		}
	}
}

// WithToolchainFactory injects the phase implementations (for testing).
func (s *DefaultService) WithToolchainFactory(f ToolchainFactory) *DefaultService {
	if f != nil {
		s.toolchainFactory = f
	}
	return s
}

// WithRevisionDetector injects the revision lookup.
func (s *DefaultService) WithRevisionDetector(d RevisionDetector) *DefaultService {
	if d != nil {
		s.revisionDetector = d
	}
	return s
}

// WithPublisherFactory injects the notification publisher.
func (s *DefaultService) WithPublisherFactory(f PublisherFactory) *DefaultService {
	if f != nil {
		s.publisherFactory = f
	}
	return s
}

// WithRecorder sets the metrics recorder. Without one, a Prometheus recorder
// is created per run when metrics.textfile is configured.
func (s *DefaultService) WithRecorder(r metrics.Recorder) *DefaultService {
	s.recorder = r
	return s
}

func natsPublisher(cfg *config.Config) (notify.Publisher, error) {
	if cfg.Notify.NATSURL == "" {
		return notify.NoopPublisher{}, nil
	}
	return notify.NewNATSPublisher(notify.Options{
		URL:       cfg.Notify.NATSURL,
		Subject:   cfg.Notify.Subject,
		JetStream: cfg.Notify.JetStream,
	})
}

// Run executes the complete build.
func (s *DefaultService) Run(ctx context.Context, req Request) (*Result, error) {
	result := &Result{Start: time.Now()}
	if req.Config == nil {
		result.Status = StatusFailed
		return result, aerrors.ConfigRequired("config")
	}
	cfg := req.Config

	layout, err := cfg.Layout()
	if err != nil {
		result.Status = StatusFailed
		return result, aerrors.ConfigInvalid(cfg.Source(), err)
	}

	recorder, prom := s.recorderFor(cfg)
	rep := report.New()
	rep.Version = version.Version
	rep.ProjectRoot = layout.ProjectRoot
	rep.Mode = cfg.API.Mode
	info, ok, err := s.revisionDetector(layout.ProjectRoot)
	if err != nil {
		slog.Warn("Failed to detect source revision", logfields.Error(err))
	}
	if ok {
		rep.Revision = info.String()
	}
	result.Report = rep

	ctx = observability.WithRunID(ctx, rep.RunID)
	observability.InfoContext(ctx, "Build started",
		logfields.Path(layout.ProjectRoot),
		slog.String("mode", cfg.API.Mode),
		slog.String("revision", rep.Revision))

	run := &buildRun{
		cfg:      cfg,
		layout:   layout,
		report:   rep,
		recorder: recorder,
		ws:       workspace.NewManager(layout, cfg.Build.KeepIntermediate),
	}
	runErr := run.execute(ctx, req, s.toolchainFactory)

	rep.Finish()
	result.End = rep.End
	result.Duration = rep.End.Sub(rep.Start)
	result.Units = rep.Units
	result.Status = statusFor(rep.Outcome)

	recorder.IncBuildOutcome(metrics.BuildOutcomeLabel(rep.Outcome))
	recorder.ObserveBuildDuration(result.Duration)
	s.persist(ctx, cfg, rep, prom, result)

	if rep.Outcome == report.OutcomeSuccess {
		if err := run.ws.Cleanup(); err != nil {
			observability.WarnContext(ctx, "Failed to clean up intermediate directory", logfields.Error(err))
		}
	}

	observability.InfoContext(ctx, "Build completed",
		logfields.Outcome(string(rep.Outcome)),
		logfields.Units(rep.Units),
		logfields.DurationMS(float64(result.Duration.Milliseconds())),
		slog.String("summary", rep.Summary()))
	return result, runErr
}

func (s *DefaultService) recorderFor(cfg *config.Config) (metrics.Recorder, *metrics.PrometheusRecorder) {
	if s.recorder != nil {
		pr, _ := s.recorder.(*metrics.PrometheusRecorder)
		return s.recorder, pr
	}
	if cfg.MetricsTextfile() != "" {
		pr := metrics.NewPrometheusRecorder(nil)
		return pr, pr
	}
	return metrics.NoopRecorder{}, nil
}

// persist writes the report and metrics and publishes the completion event.
// Failures are logged; they never change the build outcome.
func (s *DefaultService) persist(ctx context.Context, cfg *config.Config, rep *report.BuildReport, prom *metrics.PrometheusRecorder, result *Result) {
	reportPath := cfg.ReportFile()
	if err := rep.Save(reportPath); err != nil {
		observability.WarnContext(ctx, "Failed to write build report", logfields.Path(reportPath), logfields.Error(err))
	} else {
		result.ReportPath = reportPath
	}

	if textfile := cfg.MetricsTextfile(); textfile != "" && prom != nil {
		if err := prom.WriteTextfile(textfile); err != nil {
			observability.WarnContext(ctx, "Failed to write metrics textfile", logfields.Path(textfile), logfields.Error(err))
		}
	}

	pub, err := s.publisherFactory(cfg)
	if err != nil {
		observability.WarnContext(ctx, "Notifications disabled", logfields.Error(err))
		return
	}
	defer pub.Close()
	// Publishing is best effort and must still happen after an interrupt.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := pub.Publish(pctx, notify.EventFromReport(rep)); err != nil {
		observability.WarnContext(ctx, "Failed to publish build event", logfields.Error(err))
	}
}

func statusFor(o report.Outcome) Status {
	switch o {
	case report.OutcomeSuccess:
		return StatusSuccess
	case report.OutcomeCanceled:
		return StatusCanceled
	default:
		return StatusFailed
	}
}

// buildRun holds the per-run state shared by the steps of a build.
type buildRun struct {
	cfg      *config.Config
	layout   unit.Layout
	report   *report.BuildReport
	recorder metrics.Recorder
	ws       *workspace.Manager
}

func (r *buildRun) execute(ctx context.Context, req Request, factory ToolchainFactory) error {
	if err := r.ws.Prepare(r.cfg.Build.Clean); err != nil {
		return aerrors.WorkspaceError("prepare", err)
	}

	d := discovery.New(r.layout, discovery.Options{
		IgnorePrefix: r.cfg.Discovery.IgnorePrefix,
		Extensions:   r.cfg.Discovery.Extensions,
	})
	units, err := d.Discover(ctx)
	if err != nil {
		if isCanceled(err) {
			r.report.AddIssue(report.IssueCanceled, "", "", report.SeverityError, err.Error())
			return aerrors.Canceled(err)
		}
		r.report.AddIssue(report.IssueDiscoveryFailure, "", "", report.SeverityError, err.Error())
		return aerrors.DiscoveryError(r.layout.SourceRootAbs(), err)
	}
	for _, u := range units {
		r.report.TrackUnit(u.Name(), u.FileSafeName(), u.SourcePath().String())
	}
	r.recorder.SetUnits(len(units))
	r.recorder.SetConcurrency(r.cfg.Build.Concurrency)
	if len(units) == 0 {
		observability.WarnContext(ctx, "No packages found", logfields.Path(r.layout.SourceRootAbs()))
		return nil
	}

	tc := factory(toolchain.Config{
		Layout:           r.layout,
		TSConfig:         r.cfg.TSConfig,
		ReportDir:        r.cfg.API.ReportDir,
		Mode:             toolchain.Mode(r.cfg.API.Mode),
		Verbose:          req.Verbose,
		BundlerCommand:   r.cfg.Tools.Bundler,
		ExtractorCommand: r.cfg.Tools.Extractor,
	})
	phases := pipeline.New().
		Add(pipeline.PhaseBundle, tc.Bundler.Bundle).
		Add(pipeline.PhaseRollupTypes, tc.DeclarationBundler.Rollup).
		Add(pipeline.PhaseExtractAPI, tc.Extractor.Extract).
		Build()

	runner := pipeline.NewRunner(phases, pipeline.Options{
		Concurrency: r.cfg.Build.Concurrency,
		FailFast:    r.cfg.Build.FailFast,
	}).WithObserver(&reportObserver{report: r.report, recorder: r.recorder})

	res, runErr := runner.Run(ctx, units)
	r.record(res)

	if res.Canceled || isCanceled(runErr) {
		r.report.AddIssue(report.IssueCanceled, "", "", report.SeverityError, "build interrupted")
		return aerrors.Canceled(runErr)
	}
	var ue *pipeline.UnitError
	if errors.As(runErr, &ue) {
		return aerrors.PhaseFailed(categoryFor(ue.Phase), string(ue.Phase), ue.Unit.Name(), ue.Err)
	}
	if runErr != nil {
		return aerrors.InternalError("pipeline failed", runErr)
	}
	return nil
}

// record turns the pipeline result into report entries.
func (r *buildRun) record(res pipeline.Result) {
	failed := map[string]bool{}
	for _, pr := range res.Phases {
		for _, f := range pr.Failed {
			failed[f.Unit.Name()] = true
			r.report.AddIssue(issueFor(f), string(f.Phase), f.Unit.Name(), report.SeverityError, f.Err.Error())
		}
		r.report.AddPhase(report.PhaseSummary{
			Name:       string(pr.Phase),
			DurationMS: float64(pr.Duration.Milliseconds()),
			Succeeded:  len(pr.Succeeded),
			Failed:     len(pr.Failed),
			Skipped:    len(pr.Skipped),
		})
	}

	skipped := map[string]bool{}
	for _, pr := range res.Phases {
		for _, u := range pr.Skipped {
			if failed[u.Name()] || skipped[u.Name()] {
				continue
			}
			skipped[u.Name()] = true
			if res.Canceled {
				r.report.UpdateUnit(u.Name(), func(ur *report.UnitResult) { ur.Status = report.StatusCanceled })
				r.recorder.IncUnitResult(string(pr.Phase), metrics.ResultCanceled)
				continue
			}
			r.report.UpdateUnit(u.Name(), func(ur *report.UnitResult) { ur.Status = report.StatusSkipped })
			r.report.AddIssue(report.IssueUpstreamFailure, string(pr.Phase), u.Name(), report.SeverityWarning,
				"not run: an earlier phase failed")
			r.recorder.IncUnitResult(string(pr.Phase), metrics.ResultSkipped)
		}
	}

	for _, u := range res.Completed {
		r.report.UpdateUnit(u.Name(), func(ur *report.UnitResult) { ur.Status = report.StatusSucceeded })
	}
}

func issueFor(f *pipeline.UnitError) report.IssueCode {
	if errors.Is(f.Err, toolchain.ErrSurfaceChanged) {
		return report.IssueSurfaceChanged
	}
	switch f.Phase {
	case pipeline.PhaseBundle:
		return report.IssueBundleFailure
	case pipeline.PhaseRollupTypes:
		return report.IssueRollupFailure
	default:
		return report.IssueExtractFailure
	}
}

func categoryFor(p pipeline.PhaseName) aerrors.ErrorCategory {
	switch p {
	case pipeline.PhaseBundle:
		return aerrors.CategoryBundle
	case pipeline.PhaseRollupTypes:
		return aerrors.CategoryRollup
	default:
		return aerrors.CategoryExtract
	}
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
