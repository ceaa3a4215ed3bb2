package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Outcome labels
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// LedgerMetrics tracks commit activity and stock health of the ledger
type LedgerMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	commitsTotal       *Counter
	entriesTotal       *Counter
	lockConflictsTotal *Counter
	commitDuration     *Histogram

	belowReorderCount *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	reorderProvider ReorderMetricsProvider
}

// ReorderMetricsProvider counts stock records at or below their reorder level
type ReorderMetricsProvider interface {
	CountBelowReorder(ctx context.Context) (int64, error)
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	ReorderProvider ReorderMetricsProvider
}

// NewLedgerMetrics creates a new LedgerMetrics instance.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		reorderProvider: cfg.ReorderProvider,
	}

	var err error
	lm.commitsTotal, err = NewCounter(
		cfg.Meter,
		"ledger_commits_total",
		"Total number of ledger operations by operation and outcome",
		"{operations}",
	)
	if err != nil {
		return nil, err
	}

	lm.entriesTotal, err = NewCounter(
		cfg.Meter,
		"ledger_entries_total",
		"Total number of journal entries appended",
		"{entries}",
	)
	if err != nil {
		return nil, err
	}

	lm.lockConflictsTotal, err = NewCounter(
		cfg.Meter,
		"ledger_lock_conflicts_total",
		"Total number of key lock acquisitions that timed out",
		"{conflicts}",
	)
	if err != nil {
		return nil, err
	}

	lm.commitDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "ledger_commit_duration_seconds",
		Description: "Duration of ledger operations including lock wait",
		Unit:        "s",
		Boundaries:  DefaultLatencyBuckets,
	})
	if err != nil {
		return nil, err
	}

	lm.belowReorderCount, err = NewGauge(
		cfg.Meter,
		"ledger_below_reorder",
		"Number of stock records at or below their reorder level",
		"{records}",
	)
	if err != nil {
		return nil, err
	}

	return lm, nil
}

// Operation names used as metric labels
const (
	OperationSubmit   = "submit"
	OperationVoid     = "void"
	OperationMovement = "movement"
)

// RecordCommit records one ledger operation with its outcome and duration.
// kind is the transaction type or movement kind.
func (lm *LedgerMetrics) RecordCommit(ctx context.Context, operation, kind, outcome string, d time.Duration) {
	attrs := []attribute.KeyValue{
		AttrLedgerOperation.String(operation),
		AttrLedgerKind.String(kind),
		AttrLedgerOutcome.String(outcome),
	}
	lm.commitsTotal.Inc(ctx, attrs...)
	lm.commitDuration.RecordDuration(ctx, d, attrs[:2]...)
}

// RecordEntries records appended journal entries of one kind
func (lm *LedgerMetrics) RecordEntries(ctx context.Context, entryKind string, count int) {
	if count <= 0 {
		return
	}
	lm.entriesTotal.Add(ctx, int64(count), AttrEntryKind.String(entryKind))
}

// RecordLockConflict records a lock acquisition timeout
func (lm *LedgerMetrics) RecordLockConflict(ctx context.Context, operation string) {
	lm.lockConflictsTotal.Inc(ctx, AttrLedgerOperation.String(operation))
}

// RecordBelowReorder records the number of records at or below reorder level
func (lm *LedgerMetrics) RecordBelowReorder(ctx context.Context, count int64) {
	lm.belowReorderCount.Record(ctx, count)
}

// StartPeriodicCollection refreshes the below-reorder gauge every interval
// (default: 5 minutes). It is non-blocking; use Stop() to end collection.
func (lm *LedgerMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	lm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go lm.runPeriodicCollection(ctx, interval)
	})
}

func (lm *LedgerMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lm.collectReorderMetrics(ctx)

	for {
		select {
		case <-lm.stopChan:
			lm.logger.Info("Stopping periodic ledger metrics collection")
			return
		case <-ctx.Done():
			lm.logger.Info("Context cancelled, stopping periodic ledger metrics collection")
			return
		case <-ticker.C:
			lm.collectReorderMetrics(ctx)
		}
	}
}

func (lm *LedgerMetrics) collectReorderMetrics(ctx context.Context) {
	if lm.reorderProvider == nil {
		lm.logger.Debug("No reorder provider configured, skipping reorder metrics collection")
		return
	}
	count, err := lm.reorderProvider.CountBelowReorder(ctx)
	if err != nil {
		lm.logger.Warn("Failed to count records below reorder level", zap.Error(err))
		return
	}
	lm.RecordBelowReorder(ctx, count)
}

// Stop stops the periodic collection.
func (lm *LedgerMetrics) Stop() {
	lm.stopOnce.Do(func() {
		close(lm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
