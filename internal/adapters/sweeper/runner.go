// Package sweeper runs the freshness sweep on a cron schedule with a
// Redis lock so only one worker instance sweeps at a time.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ensembleops/recruitops/internal/core"
	obserrors "github.com/ensembleops/recruitops/internal/observability/errors"
	"github.com/ensembleops/recruitops/internal/observability/metrics"
	"github.com/ensembleops/recruitops/internal/observability/notify"
	"github.com/ensembleops/recruitops/internal/observability/statsd"
	"github.com/ensembleops/recruitops/internal/service"
)

const (
	lockKey        = "freshness:sweep:lock"
	defaultLockTTL = 30 * time.Minute
	sweepComponent = "freshness_sweep"
)

// Sweeper is the slice of FreshnessService the runner drives.
type Sweeper interface {
	Sweep(ctx context.Context) (*service.SweepReport, error)
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Sweeper  Sweeper
	Schedule string

	// Lock is optional; without it the sweep runs unguarded, which is
	// fine for single-instance deployments.
	Lock    core.CacheRepository
	LockTTL time.Duration

	RunOnStart bool

	Logger   *slog.Logger
	Metrics  statsd.Sink
	Notifier notify.Sink
}

// Runner fires the freshness sweep on its cron schedule.
type Runner struct {
	sweeper    Sweeper
	schedule   string
	lock       core.CacheRepository
	lockTTL    time.Duration
	runOnStart bool
	owner      string

	logger   *slog.Logger
	metrics  statsd.Sink
	notifier notify.Sink
}

// NewRunner creates a sweep runner, validating the cron expression up front.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Sweeper == nil {
		return nil, errors.New("sweeper is required")
	}
	if _, err := cron.ParseStandard(opts.Schedule); err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", opts.Schedule, err)
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	host, _ := os.Hostname()
	return &Runner{
		sweeper:    opts.Sweeper,
		schedule:   opts.Schedule,
		lock:       opts.Lock,
		lockTTL:    opts.LockTTL,
		runOnStart: opts.RunOnStart,
		owner:      host + "/" + strconv.Itoa(os.Getpid()),
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		notifier:   opts.Notifier,
	}, nil
}

// Run schedules the sweep and blocks until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting freshness sweeper", "schedule", r.schedule)

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(r.schedule, func() { r.sweepOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	if r.runOnStart {
		r.sweepOnce(ctx)
	}

	c.Start()
	<-ctx.Done()

	// Wait for an in-flight sweep to finish before returning.
	<-c.Stop().Done()

	r.logger.Info("freshness sweeper stopped", "reason", ctx.Err())
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// sweepOnce runs a single locked sweep. Errors are logged, counted, and
// fanned out to the notifier; the schedule keeps firing regardless.
func (r *Runner) sweepOnce(ctx context.Context) {
	acquired, release, err := r.acquireLock(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "sweep lock acquire failed", "error", err)
		r.emit(metrics.SweepMetric{Result: metrics.ResultError, Err: err})
		return
	}
	if !acquired {
		r.logger.InfoContext(ctx, "sweep already running elsewhere; skipping")
		r.emit(metrics.SweepMetric{Result: metrics.ResultSkipped})
		return
	}
	defer release()

	start := time.Now()
	report, err := r.sweeper.Sweep(ctx)
	elapsed := time.Since(start)

	if err != nil {
		r.logger.ErrorContext(ctx, "freshness sweep failed", "error", err, "elapsed", elapsed)
		r.emit(metrics.SweepMetric{Result: metrics.ResultError, Duration: elapsed, Err: err})
		r.notifyFailure(ctx, err)
		return
	}

	result := metrics.ResultSuccess
	if report.Scanned == 0 {
		result = metrics.ResultNoop
	}
	r.emit(metrics.SweepMetric{
		Result:   result,
		Duration: elapsed,
		Counts:   reportCounts(report),
	})

	r.logger.InfoContext(ctx, "freshness sweep complete",
		"scanned", report.Scanned,
		"marked", report.Marked,
		"siblings_reused", report.SiblingsReused,
		"cloned", report.Cloned,
		"runs_created", report.RunsCreated,
		"items_appended", report.ItemsAppended,
		"todos_created", report.TodosCreated,
		"elapsed", elapsed,
	)
}

// acquireLock takes the cross-instance sweep lock. The returned release
// func is a no-op when no lock repository is configured.
func (r *Runner) acquireLock(ctx context.Context) (bool, func(), error) {
	if r.lock == nil {
		return true, func() {}, nil
	}

	ok, err := r.lock.SetIfNotExists(ctx, lockKey, []byte(r.owner), r.lockTTL)
	if err != nil {
		return false, nil, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		return false, nil, nil
	}

	release := func() {
		if _, delErr := r.lock.Delete(context.WithoutCancel(ctx), lockKey); delErr != nil {
			r.logger.Warn("release sweep lock failed", "error", delErr)
		}
	}
	return true, release, nil
}

func (r *Runner) emit(m metrics.SweepMetric) {
	metrics.EmitSweepOutcome(r.metrics, m)
}

func (r *Runner) notifyFailure(ctx context.Context, sweepErr error) {
	if r.notifier == nil {
		return
	}

	payload := notify.SweepFailurePayload{
		Component:  sweepComponent,
		Schedule:   r.schedule,
		Error:      sweepErr.Error(),
		ErrorClass: obserrors.Classify(sweepErr),
		Severity:   notify.SeverityCritical,
		OccurredAt: time.Now().UTC(),
	}
	if err := r.notifier.SendSweepFailure(ctx, payload); err != nil {
		r.logger.ErrorContext(ctx, "sweep failure notification failed", "error", err)
	}
}

func reportCounts(report *service.SweepReport) map[string]int64 {
	return map[string]int64{
		"scanned":         int64(report.Scanned),
		"marked":          int64(report.Marked),
		"skipped_no_rev":  int64(report.SkippedNoRev),
		"siblings_reused": int64(report.SiblingsReused),
		"cloned":          int64(report.Cloned),
		"already_queued":  int64(report.AlreadyQueued),
		"runs_created":    int64(report.RunsCreated),
		"items_appended":  int64(report.ItemsAppended),
		"todos_created":   int64(report.TodosCreated),
	}
}
