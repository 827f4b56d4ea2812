package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prev)
	})
	return sr
}

func tracedRouter() *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), Tracing("sales-test", true), SpanEnricher())
	router.GET("/api/v1/sales/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/products/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	return router
}

func spanAttr(s sdktrace.ReadOnlySpan, key string) (string, bool) {
	for _, kv := range s.Attributes() {
		if kv.Key == attribute.Key(key) {
			return kv.Value.Emit(), true
		}
	}
	return "", false
}

func TestTracing_EnrichesSaleSpans(t *testing.T) {
	sr := setupTestTracer(t)
	router := tracedRouter()

	serve(router, "GET", "/api/v1/sales/abc", map[string]string{RequestIDHeader: "req-1"})
	serve(router, "GET", "/api/v1/products/p1", nil)

	spans := sr.Ended()
	require.Len(t, spans, 2)

	saleID, ok := spanAttr(spans[0], "sale.id")
	assert.True(t, ok)
	assert.Equal(t, "abc", saleID)
	reqID, _ := spanAttr(spans[0], "request_id")
	assert.Equal(t, "req-1", reqID)

	_, ok = spanAttr(spans[1], "sale.id")
	assert.False(t, ok, "product routes are not tagged with a sale id")
}

func TestTracing_MarksServerErrors(t *testing.T) {
	sr := setupTestTracer(t)
	router := tracedRouter()

	serve(router, "GET", "/boom", nil)
	serve(router, "GET", "/missing", nil)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.NotEqual(t, codes.Error, spans[1].Status().Code)
}

func TestTracing_Disabled(t *testing.T) {
	sr := setupTestTracer(t)
	router := gin.New()
	router.Use(Tracing("sales-test", false), SpanEnricher())
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(router, "GET", "/test", nil).Code)
	assert.Empty(t, sr.Ended())
}
