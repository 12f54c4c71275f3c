// Package notify defines the sweep failure notification payload and the
// sink interface its delivery fans out through.
package notify

import (
	"context"
	"errors"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// SweepFailurePayload captures the canonical data we emit when a scheduled
// freshness sweep fails.
type SweepFailurePayload struct {
	Component  string
	Schedule   string
	Error      string
	ErrorClass string
	Severity   string
	OccurredAt time.Time
	Metadata   map[string]string
}

// Sink describes a destination capable of consuming sweep failure notifications.
type Sink interface {
	SendSweepFailure(ctx context.Context, payload SweepFailurePayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload SweepFailurePayload) error

// SendSweepFailure implements the Sink interface.
func (f SinkFunc) SendSweepFailure(ctx context.Context, payload SweepFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}

// Fanout delivers a payload to every configured sink, collecting errors
// rather than stopping at the first failure.
type Fanout struct {
	sinks []Sink
}

// NewFanout builds a Fanout over the given sinks, skipping nils.
func NewFanout(sinks ...Sink) *Fanout {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Fanout{sinks: kept}
}

// Empty reports whether the fanout has no configured sinks.
func (f *Fanout) Empty() bool {
	return f == nil || len(f.sinks) == 0
}

// SendSweepFailure implements the Sink interface.
func (f *Fanout) SendSweepFailure(ctx context.Context, payload SweepFailurePayload) error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, s := range f.sinks {
		if err := s.SendSweepFailure(ctx, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
