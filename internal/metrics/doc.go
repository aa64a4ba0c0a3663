// Package metrics records build metrics behind a small Recorder interface.
//
// Components receive a Recorder through injection and default to NoopRecorder,
// so metrics never need nil checks at call sites:
//
//	svc := build.NewService(cfg).WithRecorder(metrics.NewPrometheusRecorder(nil))
//
// The CLI is a one-shot process, so the Prometheus recorder is exported with
// WriteTextfile in the node-exporter textfile collector format instead of
// being served over HTTP.
package metrics
