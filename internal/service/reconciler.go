package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type termReconciler interface {
	ReconcileCurrentTerm(ctx context.Context, now time.Time) (int, error)
}

type exportCleaner interface {
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// Reconciler drives the daily calendar pass: realigning sub-term current flags
// with the wall clock and sweeping expired export artifacts.
type Reconciler struct {
	calendar  termReconciler
	exports   exportCleaner
	metrics   *MetricsService
	logger    *zap.Logger
	interval  time.Duration
	exportTTL time.Duration
	now       func() time.Time
}

// NewReconciler constructs the reconciler. exports may be nil when the export
// surface is disabled.
func NewReconciler(calendar termReconciler, exports exportCleaner, metrics *MetricsService, logger *zap.Logger, interval, exportTTL time.Duration) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if exportTTL <= 0 {
		exportTTL = 24 * time.Hour
	}
	return &Reconciler{
		calendar:  calendar,
		exports:   exports,
		metrics:   metrics,
		logger:    logger,
		interval:  interval,
		exportTTL: exportTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start runs one pass immediately, then ticks until the context is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	go func() {
		r.RunOnce(ctx)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.logger.Info("reconciler stopped")
				return
			case <-ticker.C:
				r.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce executes a single reconciliation pass. Failures are logged, never
// propagated; the next tick retries.
func (r *Reconciler) RunOnce(ctx context.Context) {
	mutated, err := r.calendar.ReconcileCurrentTerm(ctx, r.now())
	if err != nil {
		r.logger.Error("term reconciliation failed", zap.Error(err))
	} else {
		r.metrics.ObserveReconcile(mutated)
		if mutated > 0 {
			r.logger.Info("term flags reconciled", zap.Int("mutated", mutated))
		}
	}

	if r.exports == nil {
		return
	}
	deleted, err := r.exports.CleanupOlderThan(r.exportTTL)
	if err != nil {
		r.logger.Error("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		r.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
}
