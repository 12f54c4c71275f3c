// Package metrics centralises metric names and tag shapes so the sweeper
// and CLI emit consistent series.
package metrics

import (
	"time"

	obserrors "github.com/ensembleops/recruitops/internal/observability/errors"
	"github.com/ensembleops/recruitops/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
	ResultSkipped = "skipped"
)

// SweepMetric captures the outcome of one freshness sweep for metric emission.
type SweepMetric struct {
	Result   string
	Duration time.Duration
	Err      error

	// Counts carries per-outcome counters from the sweep report
	// (marked, cloned, runs_created and so on).
	Counts map[string]int64
}

// EmitSweepOutcome emits standardised sweep lifecycle metrics.
func EmitSweepOutcome(sink statsd.Sink, in SweepMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"result": in.Result,
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("freshness.sweep", 1, tags)

	for name, value := range in.Counts {
		if value > 0 {
			sink.Count("freshness."+name, value, CloneTags(tags))
		}
	}

	if in.Duration > 0 {
		sink.Timing("freshness.sweep_duration", in.Duration, CloneTags(tags))
	}

	if in.Err == nil {
		sink.Gauge("freshness.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty maps.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
