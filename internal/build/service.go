// Package build provides the canonical build execution path for apibuilder.
// The CLI and tests both route through Service.
package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/apibuilder/internal/config"
	"git.home.luguber.info/inful/apibuilder/internal/report"
)

// Service executes builds.
type Service interface {
	// Run executes workspace preparation, discovery and the three phases, then
	// persists the report. The returned error is the first failure of the run.
	Run(ctx context.Context, req Request) (*Result, error)
}

// Request contains all inputs required to execute a build.
type Request struct {
	Config *config.Config
	// Verbose turns on verbose tool output.
	Verbose bool
}

// Status is the overall build outcome.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// Result contains the outcome of a build execution.
type Result struct {
	Status Status
	Report *report.BuildReport
	// ReportPath is where the report was written, empty if saving failed.
	ReportPath string
	Units      int
	Start      time.Time
	End        time.Time
	Duration   time.Duration
}
