package router

import (
	"github.com/erp/salesengine/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers bundles the endpoint handlers wired into the API
type Handlers struct {
	Sales           *handler.SaleHandler
	Products        *handler.ProductHandler
	Reconciliations *handler.ReconciliationHandler
	Health          *handler.HealthHandler
}

// SaleRoutes declares the sale endpoints
func SaleRoutes(h *handler.SaleHandler) *DomainGroup {
	g := NewDomainGroup("sales", "/sales")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/number/:number", h.GetByNumber)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
	g.PUT("/:id/status", h.ChangeStatus)

	items := g.Group("sale-items", "/:id/items")
	items.POST("", h.AddItem)
	items.PUT("/:item_id", h.UpdateItem)
	items.DELETE("/:item_id", h.DeleteItem)
	return g
}

// ProductRoutes declares the catalog endpoints
func ProductRoutes(h *handler.ProductHandler) *DomainGroup {
	g := NewDomainGroup("products", "/products")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/code/:code", h.GetByCode)
	g.GET("/:id", h.Get)
	g.PUT("/:id/price", h.ChangePrice)
	g.POST("/:id/restock", h.Restock)
	return g
}

// ReconciliationRoutes declares the stock drift endpoints
func ReconciliationRoutes(h *handler.ReconciliationHandler) *DomainGroup {
	g := NewDomainGroup("reconciliations", "/reconciliations")
	g.GET("", h.ListOpen)
	g.POST("/:id/resolve", h.Resolve)
	return g
}

// Mount registers the health probes at the root and every domain group
// under the versioned API. Nil handlers are skipped.
func Mount(engine *gin.Engine, handlers Handlers, opts ...RouterOption) *Router {
	if handlers.Health != nil {
		engine.GET("/health", handlers.Health.Ready)
		engine.GET("/health/live", handlers.Health.Live)
	}

	r := NewRouter(engine, opts...)
	if handlers.Sales != nil {
		r.Register(SaleRoutes(handlers.Sales))
	}
	if handlers.Products != nil {
		r.Register(ProductRoutes(handlers.Products))
	}
	if handlers.Reconciliations != nil {
		r.Register(ReconciliationRoutes(handlers.Reconciliations))
	}
	r.Setup()
	return r
}
