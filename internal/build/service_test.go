package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/apibuilder/internal/config"
	aerrors "git.home.luguber.info/inful/apibuilder/internal/errors"
	"git.home.luguber.info/inful/apibuilder/internal/metrics"
	"git.home.luguber.info/inful/apibuilder/internal/notify"
	"git.home.luguber.info/inful/apibuilder/internal/report"
	"git.home.luguber.info/inful/apibuilder/internal/revision"
	"git.home.luguber.info/inful/apibuilder/internal/surface"
	"git.home.luguber.info/inful/apibuilder/internal/toolchain"
	"git.home.luguber.info/inful/apibuilder/internal/unit"
)

var errToolBoom = errors.New("boom")

// fakeToolchain records phase calls and fails the units listed per phase.
type fakeToolchain struct {
	mu    sync.Mutex
	cfg   toolchain.Config
	calls map[string][]string
	fail  map[string]map[string]error
}

func newFakeToolchain() *fakeToolchain {
	return &fakeToolchain{calls: map[string][]string{}, fail: map[string]map[string]error{}}
}

func (f *fakeToolchain) failOn(phase, name string, err error) *fakeToolchain {
	if f.fail[phase] == nil {
		f.fail[phase] = map[string]error{}
	}
	f.fail[phase][name] = err
	return f
}

func (f *fakeToolchain) step(phase string, d *unit.Descriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[phase] = append(f.calls[phase], d.Name())
	return f.fail[phase][d.Name()]
}

func (f *fakeToolchain) called(phase string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls[phase]...)
}

func (f *fakeToolchain) Bundle(_ context.Context, d *unit.Descriptor) error {
	return f.step("bundle", d)
}

func (f *fakeToolchain) Rollup(_ context.Context, d *unit.Descriptor) error {
	return f.step("rollup_types", d)
}

func (f *fakeToolchain) Extract(_ context.Context, d *unit.Descriptor) error {
	return f.step("extract_api", d)
}

func (f *fakeToolchain) factory() ToolchainFactory {
	return func(cfg toolchain.Config) Toolchain {
		f.mu.Lock()
		f.cfg = cfg
		f.mu.Unlock()
		return Toolchain{Bundler: f, DeclarationBundler: f, Extractor: f}
	}
}

type capturePublisher struct {
	events []notify.Event
	closed bool
}

func (p *capturePublisher) Publish(_ context.Context, e notify.Event) error {
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) Close() { p.closed = true }

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte("export const x = 1;\n"), 0o600))
}

// testProject creates a project with packages a and b and returns a config rooted at it.
func testProject(t *testing.T) (string, *config.Config) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "src/packages/a/index.ts")
	writeFile(t, root, "src/packages/b/index.ts")
	writeFile(t, root, "src/packages/b/-draft.ts")
	cfg := config.Default().WithProjectRoot(root)
	return root, cfg
}

func testService(tc *fakeToolchain) *DefaultService {
	return NewService().
		WithToolchainFactory(tc.factory()).
		WithRevisionDetector(func(string) (revision.Info, bool, error) { return revision.Info{}, false, nil }).
		WithPublisherFactory(func(*config.Config) (notify.Publisher, error) { return notify.NoopPublisher{}, nil })
}

func TestRun_Success(t *testing.T) {
	root, cfg := testProject(t)
	tc := newFakeToolchain()

	res, err := testService(tc).Run(context.Background(), Request{Config: cfg})
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 2, res.Units)
	for _, phase := range []string{"bundle", "rollup_types", "extract_api"} {
		assert.ElementsMatch(t, []string{"a", "b"}, tc.called(phase), phase)
	}
	assert.Equal(t, toolchain.ModeUpdate, tc.cfg.Mode)

	assert.Equal(t, filepath.Join(root, "out", "build-report.json"), res.ReportPath)
	saved, err := report.Load(res.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, report.OutcomeSuccess, saved.Outcome)
	assert.Len(t, saved.Phases, 3)
	assert.Empty(t, saved.Issues)
	u, ok := res.Report.Unit("a")
	require.True(t, ok)
	assert.Equal(t, report.StatusSucceeded, u.Status)
	assert.Equal(t, "extract_api", u.LastPhase)
}

func TestRun_UnitFailureIsolated(t *testing.T) {
	_, cfg := testProject(t)
	tc := newFakeToolchain().failOn("bundle", "b", errToolBoom)

	res, err := testService(tc).Run(context.Background(), Request{Config: cfg})
	require.Error(t, err)
	require.ErrorIs(t, err, errToolBoom)
	assert.True(t, aerrors.IsCategory(err, aerrors.CategoryBundle))

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, []string{"a"}, tc.called("rollup_types"))
	assert.Equal(t, []string{"a"}, tc.called("extract_api"))

	rep := res.Report
	assert.True(t, rep.HasIssue(report.IssueBundleFailure))
	assert.False(t, rep.HasIssue(report.IssueUpstreamFailure))
	a, _ := rep.Unit("a")
	b, _ := rep.Unit("b")
	assert.Equal(t, report.StatusSucceeded, a.Status)
	assert.Equal(t, report.StatusFailed, b.Status)
	assert.Equal(t, "bundle", b.LastPhase)
	assert.Contains(t, b.Error, "boom")
}

func TestRun_FailFastSkipsLaterPhases(t *testing.T) {
	_, cfg := testProject(t)
	cfg.Build.FailFast = true
	tc := newFakeToolchain().failOn("bundle", "b", errToolBoom)

	res, err := testService(tc).Run(context.Background(), Request{Config: cfg})
	require.ErrorIs(t, err, errToolBoom)

	assert.Empty(t, tc.called("rollup_types"))
	a, _ := res.Report.Unit("a")
	assert.Equal(t, report.StatusSkipped, a.Status)
	assert.True(t, res.Report.HasIssue(report.IssueUpstreamFailure))
}

func TestRun_SurfaceChange(t *testing.T) {
	_, cfg := testProject(t)
	cfg.API.Mode = "check"
	change := &toolchain.SurfaceChangeError{
		Unit: "a",
		Diff: surface.Diff{Changed: true, Added: []string{"export declare const y: number;"}},
	}
	tc := newFakeToolchain().failOn("extract_api", "a", change)

	res, err := testService(tc).Run(context.Background(), Request{Config: cfg})
	require.ErrorIs(t, err, toolchain.ErrSurfaceChanged)
	assert.True(t, aerrors.IsCategory(err, aerrors.CategoryExtract))
	assert.Equal(t, toolchain.ModeCheck, tc.cfg.Mode)

	assert.True(t, res.Report.HasIssue(report.IssueSurfaceChanged))
	assert.False(t, res.Report.HasIssue(report.IssueExtractFailure))
	a, _ := res.Report.Unit("a")
	assert.Equal(t, []string{"export declare const y: number;"}, a.Added)
}

func TestRun_NilConfig(t *testing.T) {
	res, err := testService(newFakeToolchain()).Run(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, aerrors.IsCategory(err, aerrors.CategoryConfig))
	assert.Equal(t, StatusFailed, res.Status)
}

func TestRun_DiscoveryFailure(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default().WithProjectRoot(root)
	tc := newFakeToolchain()

	res, err := testService(tc).Run(context.Background(), Request{Config: cfg})
	require.Error(t, err)
	assert.True(t, aerrors.IsCategory(err, aerrors.CategoryDiscovery))
	assert.True(t, res.Report.HasIssue(report.IssueDiscoveryFailure))
	assert.Equal(t, StatusFailed, res.Status)
	assert.Empty(t, tc.called("bundle"))
}

func TestRun_CanceledBeforeStart(t *testing.T) {
	_, cfg := testProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tc := newFakeToolchain()

	res, err := testService(tc).Run(ctx, Request{Config: cfg})
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, aerrors.IsCategory(err, aerrors.CategoryRuntime))
	assert.Equal(t, StatusCanceled, res.Status)
	assert.True(t, res.Report.HasIssue(report.IssueCanceled))
	assert.Empty(t, tc.called("bundle"))
}

func TestRun_NoUnits(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "packages"), 0o750))
	cfg := config.Default().WithProjectRoot(root)

	res, err := testService(newFakeToolchain()).Run(context.Background(), Request{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Zero(t, res.Units)
}

func TestRun_MetricsTextfile(t *testing.T) {
	root, cfg := testProject(t)
	cfg.Metrics.Textfile = "out/apibuilder.prom"
	reg := prom.NewRegistry()

	svc := testService(newFakeToolchain()).WithRecorder(metrics.NewPrometheusRecorder(reg))
	_, err := svc.Run(context.Background(), Request{Config: cfg})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "out", "apibuilder.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `apibuilder_build_outcomes_total{outcome="success"} 1`)
	assert.Contains(t, string(data), `apibuilder_unit_results_total{phase="bundle",result="success"} 2`)
}

func TestRun_PublishesEvent(t *testing.T) {
	_, cfg := testProject(t)
	pub := &capturePublisher{}
	svc := testService(newFakeToolchain().failOn("rollup_types", "a", errToolBoom)).
		WithPublisherFactory(func(*config.Config) (notify.Publisher, error) { return pub, nil })

	res, err := svc.Run(context.Background(), Request{Config: cfg})
	require.Error(t, err)
	require.Len(t, pub.events, 1)
	assert.True(t, pub.closed)
	e := pub.events[0]
	assert.Equal(t, res.Report.RunID, e.RunID)
	assert.Equal(t, "failed", e.Outcome)
	assert.Equal(t, 1, e.Failed)
	assert.Equal(t, 1, e.Succeeded)
}

func TestRun_IntermediateCleanup(t *testing.T) {
	t.Run("removed after success", func(t *testing.T) {
		root, cfg := testProject(t)
		cfg.Build.KeepIntermediate = false
		_, err := testService(newFakeToolchain()).Run(context.Background(), Request{Config: cfg})
		require.NoError(t, err)
		assert.NoDirExists(t, filepath.Join(root, "temp"))
	})
	t.Run("kept after failure", func(t *testing.T) {
		root, cfg := testProject(t)
		cfg.Build.KeepIntermediate = false
		tc := newFakeToolchain().failOn("bundle", "a", errToolBoom)
		_, err := testService(tc).Run(context.Background(), Request{Config: cfg})
		require.Error(t, err)
		assert.DirExists(t, filepath.Join(root, "temp"))
	})
}

func TestRun_RecordsRevision(t *testing.T) {
	_, cfg := testProject(t)
	info := revision.Info{Commit: "0123456789abcdef0123456789abcdef01234567", Branch: "main", Dirty: true}
	svc := testService(newFakeToolchain()).
		WithRevisionDetector(func(string) (revision.Info, bool, error) { return info, true, nil })

	res, err := svc.Run(context.Background(), Request{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, info.String(), res.Report.Revision)
}

func TestRun_KeepsRevisionWhenStatusFails(t *testing.T) {
	_, cfg := testProject(t)
	info := revision.Info{Commit: "0123456789abcdef0123456789abcdef01234567", Branch: "main"}
	svc := testService(newFakeToolchain()).
		WithRevisionDetector(func(string) (revision.Info, bool, error) {
			return info, true, errors.New("worktree status: index locked")
		})

	res, err := svc.Run(context.Background(), Request{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, "01234567", res.Report.Revision)
}
