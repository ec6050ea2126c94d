// Package metrics provides an observability hook for the dispatcher.
//
// Following the Null Object pattern, components take a Recorder and default
// to NoopRecorder, which implements every method as a no-op. Metrics are
// activated by swapping in a PrometheusRecorder when the daemon is
// configured with metrics enabled.
package metrics
