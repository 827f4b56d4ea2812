package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appcatalog "github.com/erp/salesengine/internal/application/catalog"
	appsales "github.com/erp/salesengine/internal/application/sales"
	"github.com/erp/salesengine/internal/infrastructure/cache"
	"github.com/erp/salesengine/internal/infrastructure/memstore"
	"github.com/erp/salesengine/internal/interfaces/http/handler"
	"github.com/erp/salesengine/internal/interfaces/http/middleware"
	"github.com/erp/salesengine/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

var testDay = time.Date(2026, 1, 5, 10, 30, 0, 0, time.UTC)

// envelope mirrors dto.Response with raw data for per-test decoding
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string         `json:"code"`
		Message   string         `json:"message"`
		RequestID string         `json:"request_id"`
		Details   map[string]any `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		PageSize   int   `json:"page_size"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
}

type apiFixture struct {
	t      *testing.T
	engine *gin.Engine
	store  *memstore.Store
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := memstore.New()
	log := zap.NewNop()

	coord := appsales.NewCoordinator(memstore.NewScope(store), store.Sales(), appsales.DefaultConfig(), log)
	coord.SetClock(func() time.Time { return testDay })
	coord.SetReconciliationRepository(store.Reconciliations())
	idem := cache.NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(func() { _ = idem.Close() })
	coord.SetIdempotencyStore(idem)

	products := appcatalog.NewProductService(store.Products(), store.Ledger(), log)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	router.Mount(engine, router.Handlers{
		Sales:           handler.NewSaleHandler(coord),
		Products:        handler.NewProductHandler(products),
		Reconciliations: handler.NewReconciliationHandler(appsales.NewReconciliationService(store.Reconciliations(), log)),
		Health:          handler.NewHealthHandler("test", nil),
	})
	return &apiFixture{t: t, engine: engine, store: store}
}

func (f *apiFixture) do(method, path string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	f.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// createProduct adds a product with price 10.00, tax 18% unless overridden
func (f *apiFixture) createProduct(code string, stock int64) appcatalog.ProductResponse {
	f.t.Helper()
	w, env := f.do(http.MethodPost, "/api/v1/products", map[string]any{
		"code":           code,
		"name":           "Product " + code,
		"unit_price":     "10.00",
		"tax_rate":       "18",
		"stock_quantity": stock,
	})
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[appcatalog.ProductResponse](f.t, env)
}

func (f *apiFixture) stockOf(p appcatalog.ProductResponse) int64 {
	f.t.Helper()
	w, env := f.do(http.MethodGet, "/api/v1/products/"+p.ID.String(), nil)
	require.Equal(f.t, http.StatusOK, w.Code)
	return decode[appcatalog.ProductResponse](f.t, env).StockQuantity
}

func saleBody(items ...map[string]any) map[string]any {
	return map[string]any{
		"customer_id": "6f1c7c1e-8a57-4d4b-9a55-0d7f3e6b1c01",
		"employee_id": "0b9e1f2a-3c4d-4e5f-8a9b-1c2d3e4f5a6b",
		"items":       items,
	}
}

func item(p appcatalog.ProductResponse, qty int64) map[string]any {
	return map[string]any{"product_id": p.ID.String(), "quantity": qty}
}
