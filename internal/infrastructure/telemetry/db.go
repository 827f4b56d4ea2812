package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig controls gorm instrumentation
type DBConfig struct {
	Enabled            bool
	DBSystem           string
	WithQueryVariables bool
	SlowQueryThreshold time.Duration
}

const dbStartKey = "telemetry:start"

// InstrumentDB registers otelgorm tracing on db plus a callback that flags
// slow statements on their span and in the log
func InstrumentDB(db *gorm.DB, cfg DBConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.WithQueryVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) { tx.InstanceSet(dbStartKey, time.Now()) }
	after := func(tx *gorm.DB) { slowQuery(tx, cfg.SlowQueryThreshold, logger) }

	cb := db.Callback()
	for _, r := range []struct {
		before, after func() error
	}{
		{
			func() error { return cb.Create().Before("gorm:create").Register("telemetry:before_create", before) },
			func() error { return cb.Create().After("gorm:create").Register("telemetry:after_create", after) },
		},
		{
			func() error { return cb.Query().Before("gorm:query").Register("telemetry:before_query", before) },
			func() error { return cb.Query().After("gorm:query").Register("telemetry:after_query", after) },
		},
		{
			func() error { return cb.Update().Before("gorm:update").Register("telemetry:before_update", before) },
			func() error { return cb.Update().After("gorm:update").Register("telemetry:after_update", after) },
		},
		{
			func() error { return cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", before) },
			func() error { return cb.Delete().After("gorm:delete").Register("telemetry:after_delete", after) },
		},
		{
			func() error { return cb.Raw().Before("gorm:raw").Register("telemetry:before_raw", before) },
			func() error { return cb.Raw().After("gorm:raw").Register("telemetry:after_raw", after) },
		},
	} {
		if err := r.before(); err != nil {
			return err
		}
		if err := r.after(); err != nil {
			return err
		}
	}
	return nil
}

func slowQuery(tx *gorm.DB, threshold time.Duration, logger *zap.Logger) {
	v, ok := tx.InstanceGet(dbStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if elapsed < threshold {
		return
	}

	span := trace.SpanFromContext(tx.Statement.Context)
	span.SetAttributes(
		attribute.Bool("db.slow_query", true),
		attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
	)
	logger.Warn("slow query",
		zap.String("table", tx.Statement.Table),
		zap.Duration("duration", elapsed),
		zap.Int64("rows", tx.RowsAffected),
		zap.String("trace_id", TraceID(tx.Statement.Context)),
	)
}

// RegisterPoolMetrics reports connection pool usage of db as observable
// gauges
func RegisterPoolMetrics(meter metric.Meter, db *gorm.DB) error {
	if meter == nil {
		return ErrMeterNil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	open, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Database connections by state"))
	if err != nil {
		return err
	}
	maxOpen, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open database connections"))
	if err != nil {
		return err
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connections waited for"))
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(open, int64(stats.InUse), metric.WithAttributes(attribute.String("state", "in_use")))
		o.ObserveInt64(open, int64(stats.Idle), metric.WithAttributes(attribute.String("state", "idle")))
		o.ObserveInt64(maxOpen, int64(stats.MaxOpenConnections))
		o.ObserveInt64(waits, stats.WaitCount)
		return nil
	}, open, maxOpen, waits)
	return err
}
