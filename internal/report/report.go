// Package report holds the machine-readable summary of a build run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is bumped on incompatible changes to the JSON layout.
const SchemaVersion = 1

// Outcome is the final state of a build.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Status is the state of one unit after the run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCanceled  Status = "canceled"
)

// IssueCode enumerates machine-parseable issue identifiers.
// These codes are a stable contract: append only.
type IssueCode string

const (
	IssueDiscoveryFailure IssueCode = "DISCOVERY_FAILURE"
	IssueBundleFailure    IssueCode = "BUNDLE_FAILURE"
	IssueRollupFailure    IssueCode = "ROLLUP_FAILURE"
	IssueExtractFailure   IssueCode = "EXTRACT_FAILURE"
	IssueSurfaceChanged   IssueCode = "API_SURFACE_CHANGED"
	IssueUpstreamFailure  IssueCode = "UPSTREAM_FAILURE"
	IssueCanceled         IssueCode = "BUILD_CANCELED"
)

// Severity of an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a structured taxonomy entry describing a discrete problem.
type Issue struct {
	Code     IssueCode `json:"code"`
	Phase    string    `json:"phase,omitempty"`
	Unit     string    `json:"unit,omitempty"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
}

// PhaseSummary aggregates one phase across all units.
type PhaseSummary struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Succeeded  int     `json:"succeeded"`
	Failed     int     `json:"failed"`
	Skipped    int     `json:"skipped"`
}

// UnitResult is the per-unit outcome.
type UnitResult struct {
	Name     string `json:"name"`
	SafeName string `json:"safe_name"`
	Source   string `json:"source"`
	// LastPhase is the last phase the unit entered.
	LastPhase string   `json:"last_phase,omitempty"`
	Status    Status   `json:"status"`
	Error     string   `json:"error,omitempty"`
	Added     []string `json:"api_added,omitempty"`
	Removed   []string `json:"api_removed,omitempty"`
}

// BuildReport captures a single build run. Methods are safe for concurrent use.
type BuildReport struct {
	SchemaVersion int            `json:"schema_version"`
	RunID         string         `json:"run_id"`
	Version       string         `json:"version,omitempty"`
	Revision      string         `json:"revision,omitempty"`
	ProjectRoot   string         `json:"project_root"`
	Mode          string         `json:"mode,omitempty"`
	Start         time.Time      `json:"start"`
	End           time.Time      `json:"end"`
	Outcome       Outcome        `json:"outcome"`
	Units         int            `json:"units"`
	Phases        []PhaseSummary `json:"phases"`
	Results       []UnitResult   `json:"results"`
	Issues        []Issue        `json:"issues"`

	mu    sync.Mutex
	index map[string]int
}

// New starts a report with a fresh run id.
func New() *BuildReport {
	return &BuildReport{
		SchemaVersion: SchemaVersion,
		RunID:         uuid.NewString(),
		Start:         time.Now(),
		Phases:        []PhaseSummary{},
		Results:       []UnitResult{},
		Issues:        []Issue{},
		index:         map[string]int{},
	}
}

// TrackUnit registers a unit as pending. Registration order is report order.
func (r *BuildReport) TrackUnit(name, safeName, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[name]; ok {
		return
	}
	r.index[name] = len(r.Results)
	r.Results = append(r.Results, UnitResult{Name: name, SafeName: safeName, Source: source, Status: StatusPending})
	r.Units = len(r.Results)
}

// UpdateUnit applies fn to the named unit's result. Unknown names are ignored.
func (r *BuildReport) UpdateUnit(name string, fn func(*UnitResult)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[name]; ok {
		fn(&r.Results[i])
	}
}

// Unit returns a copy of the named unit's result.
func (r *BuildReport) Unit(name string) (UnitResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[name]
	if !ok {
		return UnitResult{}, false
	}
	return r.Results[i], true
}

// AddPhase appends a phase summary.
func (r *BuildReport) AddPhase(s PhaseSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Phases = append(r.Phases, s)
}

// AddIssue appends a structured issue.
func (r *BuildReport) AddIssue(code IssueCode, phase, unit string, severity Severity, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Issues = append(r.Issues, Issue{Code: code, Phase: phase, Unit: unit, Severity: severity, Message: msg})
}

// HasIssue reports whether any issue carries code.
func (r *BuildReport) HasIssue(code IssueCode) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, is := range r.Issues {
		if is.Code == code {
			return true
		}
	}
	return false
}

// Finish stamps the end time and derives the outcome. Units still pending
// are marked succeeded on success, and canceled otherwise.
func (r *BuildReport) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.End = time.Now()
	r.Outcome = r.deriveOutcome()
	for i := range r.Results {
		if r.Results[i].Status != StatusPending {
			continue
		}
		if r.Outcome == OutcomeSuccess {
			r.Results[i].Status = StatusSucceeded
		} else {
			r.Results[i].Status = StatusCanceled
		}
	}
}

func (r *BuildReport) deriveOutcome() Outcome {
	failed := false
	for _, is := range r.Issues {
		if is.Code == IssueCanceled {
			return OutcomeCanceled
		}
		if is.Severity == SeverityError {
			failed = true
		}
	}
	if failed {
		return OutcomeFailed
	}
	return OutcomeSuccess
}

// Counts returns the number of units per status.
func (r *BuildReport) Counts() map[Status]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[Status]int{}
	for _, res := range r.Results {
		out[res.Status]++
	}
	return out
}

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	c := r.Counts()
	end := r.End
	if end.IsZero() {
		end = time.Now()
	}
	return fmt.Sprintf("units=%d succeeded=%d failed=%d skipped=%d issues=%d duration=%s outcome=%s",
		r.Units, c[StatusSucceeded], c[StatusFailed], c[StatusSkipped], len(r.Issues),
		end.Sub(r.Start).Truncate(time.Millisecond), r.Outcome)
}

// Save writes the report as indented JSON to path atomically.
func (r *BuildReport) Save(path string) error {
	r.mu.Lock()
	data, err := json.MarshalIndent(r, "", "  ")
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("ensure report dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename report json: %w", err)
	}
	return nil
}

// Load reads a report written by Save.
func Load(path string) (*BuildReport, error) {
	// #nosec G304 -- report path comes from configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	r := &BuildReport{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	r.index = make(map[string]int, len(r.Results))
	for i, res := range r.Results {
		r.index[res.Name] = i
	}
	return r, nil
}
