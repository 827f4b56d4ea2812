package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/salesengine/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		out[string(a.Key)] = a.Value
	}
	return out
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupRecorder(t)

	ctx, span := telemetry.StartServiceSpan(context.Background(), "sale", "create")
	assert.NotEmpty(t, telemetry.TraceID(ctx))
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleNumber, "SL20260105001",
		telemetry.SpanAttrItemsCount, 2,
		telemetry.SpanAttrQuantity, int64(5),
		42, "skipped",
	)
	telemetry.SetAttribute(span, "retried", true)
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "sale.create", ended[0].Name())

	attrs := attrMap(ended[0].Attributes())
	assert.Equal(t, "SL20260105001", attrs[telemetry.SpanAttrSaleNumber].AsString())
	assert.Equal(t, int64(2), attrs[telemetry.SpanAttrItemsCount].AsInt64())
	assert.Equal(t, int64(5), attrs[telemetry.SpanAttrQuantity].AsInt64())
	assert.True(t, attrs["retried"].AsBool())
	assert.Len(t, attrs, 4)
}

func TestRecordError(t *testing.T) {
	sr := setupRecorder(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "sale", "delete_sale")
	telemetry.RecordError(span, errors.New("boom"))
	telemetry.RecordError(span, nil)
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.TraceID(context.Background()))
}

func TestSetAttributes_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.SetAttribute(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
	})
}
