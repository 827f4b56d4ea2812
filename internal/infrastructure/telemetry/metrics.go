package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

// Counter wraps an Int64Counter
type Counter struct {
	counter metric.Int64Counter
}

func NewCounter(meter metric.Meter, name, description, unit string) (*Counter, error) {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, err
	}
	return &Counter{counter: c}, nil
}

func (c *Counter) Add(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, attrs...)
}

// FloatCounter wraps a Float64Counter, used for monetary sums
type FloatCounter struct {
	counter metric.Float64Counter
}

func NewFloatCounter(meter metric.Meter, name, description, unit string) (*FloatCounter, error) {
	c, err := meter.Float64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, err
	}
	return &FloatCounter{counter: c}, nil
}

func (c *FloatCounter) Add(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

// Histogram wraps a Float64Histogram
type Histogram struct {
	histogram metric.Float64Histogram
}

// HistogramOpts describes a histogram instrument
type HistogramOpts struct {
	Name        string
	Description string
	Unit        string
	Buckets     []float64
}

func NewHistogram(meter metric.Meter, opts HistogramOpts) (*Histogram, error) {
	options := []metric.Float64HistogramOption{
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	}
	if len(opts.Buckets) > 0 {
		options = append(options, metric.WithExplicitBucketBoundaries(opts.Buckets...))
	}
	h, err := meter.Float64Histogram(opts.Name, options...)
	if err != nil {
		return nil, err
	}
	return &Histogram{histogram: h}, nil
}

func (h *Histogram) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

// RecordDuration records d in seconds
func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.Record(ctx, d.Seconds(), attrs...)
}

// Metric names exported by SalesMetrics
const (
	MetricSalesCreated          = "sales_created_total"
	MetricSalesAmount           = "sales_amount_total"
	MetricReservationFailures   = "stock_reservation_failures_total"
	MetricCompensations         = "sale_compensations_total"
	MetricReconciliations       = "sale_reconciliations_total"
	MetricSaleOperationDuration = "sale_operation_duration_seconds"
)

// SalesMetricsConfig configures SalesMetrics
type SalesMetricsConfig struct {
	Meter metric.Meter
}

// SalesMetrics records sale transaction outcomes
type SalesMetrics struct {
	created         *Counter
	amount          *FloatCounter
	reservationFail *Counter
	compensations   *Counter
	reconciliations *Counter
	duration        *Histogram
}

// NewSalesMetrics registers the sale instruments on cfg.Meter
func NewSalesMetrics(cfg SalesMetricsConfig) (*SalesMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	m := &SalesMetrics{}
	var err error
	if m.created, err = NewCounter(cfg.Meter, MetricSalesCreated, "Number of sales created", "{sale}"); err != nil {
		return nil, err
	}
	if m.amount, err = NewFloatCounter(cfg.Meter, MetricSalesAmount, "Grand total of created sales", "{currency}"); err != nil {
		return nil, err
	}
	if m.reservationFail, err = NewCounter(cfg.Meter, MetricReservationFailures, "Sale operations rejected for insufficient stock", "{failure}"); err != nil {
		return nil, err
	}
	if m.compensations, err = NewCounter(cfg.Meter, MetricCompensations, "Stock compensations run after failed sale operations", "{compensation}"); err != nil {
		return nil, err
	}
	if m.reconciliations, err = NewCounter(cfg.Meter, MetricReconciliations, "Failed compensations flagged for manual reconciliation", "{reconciliation}"); err != nil {
		return nil, err
	}
	m.duration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        MetricSaleOperationDuration,
		Description: "Duration of sale operations including retries",
		Unit:        "s",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SalesMetrics) RecordSaleCreated(ctx context.Context, grandTotal decimal.Decimal) {
	if m == nil {
		return
	}
	m.created.Inc(ctx)
	m.amount.Add(ctx, grandTotal.InexactFloat64())
}

// RecordOperation records the duration and outcome of op
func (m *SalesMetrics) RecordOperation(ctx context.Context, op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.duration.RecordDuration(ctx, d,
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	)
}

func (m *SalesMetrics) RecordReservationFailure(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.reservationFail.Inc(ctx, attribute.String("operation", op))
}

func (m *SalesMetrics) RecordCompensation(ctx context.Context, op string, succeeded bool) {
	if m == nil {
		return
	}
	m.compensations.Inc(ctx,
		attribute.String("operation", op),
		attribute.Bool("succeeded", succeeded),
	)
}

func (m *SalesMetrics) RecordReconciliation(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.reconciliations.Inc(ctx, attribute.String("operation", op))
}
