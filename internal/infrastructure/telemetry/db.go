package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig controls database instrumentation
type DBConfig struct {
	Tracing            bool          // register otelgorm spans
	LogFullSQL         bool          // keep query variables in spans (never in production)
	SlowQueryThreshold time.Duration // default 200ms
	DBName             string
}

// DBInstrumentation records query metrics and marks slow queries on the
// active span. Connection pool statistics are observed on every collection.
type DBInstrumentation struct {
	cfg    DBConfig
	logger *zap.Logger
	sqlDB  *sql.DB

	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
	registration   metric.Registration
}

type dbStartKey struct{}

// InstrumentDB installs tracing and metrics callbacks on db
func InstrumentDB(db *gorm.DB, cfg DBConfig, meter metric.Meter, logger *zap.Logger) (*DBInstrumentation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	d := &DBInstrumentation{cfg: cfg, logger: logger}

	var err error
	if d.queryTotal, err = NewCounter(meter, "db_query_total", "Database statements by operation", "{query}"); err != nil {
		return nil, err
	}
	if d.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database statement latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if d.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total", "Statements slower than the slow query threshold", "{query}"); err != nil {
		return nil, err
	}

	if cfg.Tracing {
		opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
		if !cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return nil, err
		}
	}
	if err := d.registerCallbacks(db); err != nil {
		return nil, err
	}

	if d.sqlDB, err = db.DB(); err == nil {
		if err := d.observePool(meter); err != nil {
			return nil, err
		}
	}

	logger.Info("Database instrumentation enabled",
		zap.Bool("tracing", cfg.Tracing),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
	)
	return d, nil
}

func (d *DBInstrumentation) observePool(meter metric.Meter) error {
	conns, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"), metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	maxConns, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open connections"), metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	d.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := d.sqlDB.Stats()
		o.ObserveInt64(maxConns, int64(stats.MaxOpenConnections))
		o.ObserveInt64(conns, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(conns, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		return nil
	}, conns, maxConns)
	return err
}

func (d *DBInstrumentation) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	before := func(db *gorm.DB) {
		if db.Statement.Context != nil {
			db.Statement.Context = context.WithValue(db.Statement.Context, dbStartKey{}, time.Now())
		}
	}
	after := func(operation string) func(*gorm.DB) {
		return func(db *gorm.DB) { d.afterStatement(db, operation) }
	}

	regs := []struct {
		name   string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
		op     string
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register, "INSERT"},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register, "SELECT"},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register, "UPDATE"},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register, "DELETE"},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register, ""},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register, ""},
	}
	for _, r := range regs {
		if err := r.before("ledger_db:before_"+r.name, before); err != nil {
			return err
		}
		if err := r.after("ledger_db:after_"+r.name, after(r.op)); err != nil {
			return err
		}
	}
	return nil
}

func (d *DBInstrumentation) afterStatement(db *gorm.DB, operation string) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	if operation == "" {
		operation = StatementOperation(db.Statement.SQL.String())
	}
	start, ok := ctx.Value(dbStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)

	d.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
	d.queryDuration.RecordDuration(ctx, elapsed, AttrDBOperation.String(operation))

	span := trace.SpanFromContext(ctx)
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) && span.IsRecording() {
		span.SetStatus(codes.Error, db.Error.Error())
	}
	if elapsed <= d.cfg.SlowQueryThreshold {
		return
	}

	table := db.Statement.Table
	if table == "" {
		table = "unknown"
	}
	d.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	if span.IsRecording() {
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.String("db.sql.table", table),
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
		))
	}
	d.logger.Warn("Slow database statement",
		zap.String("operation", operation),
		zap.String("table", table),
		zap.Duration("elapsed", elapsed),
	)
}

// Stop unregisters the pool statistics callback
func (d *DBInstrumentation) Stop() error {
	if d.registration == nil {
		return nil
	}
	return d.registration.Unregister()
}

// StatementOperation returns the SQL verb of a raw statement
func StatementOperation(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, verb) {
			return verb
		}
	}
	return "OTHER"
}
