package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/erp/salesengine/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers liveness and readiness probes
type HealthHandler struct {
	BaseHandler
	version string
	checks  map[string]Pinger
	timeout time.Duration
}

// NewHealthHandler creates a health handler. checks may be empty when the
// engine runs on the in-memory store.
func NewHealthHandler(version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{version: version, checks: checks, timeout: 2 * time.Second}
}

// Live godoc
// @Summary      Liveness probe
// @Description  Answers as long as the process serves HTTP
// @Tags         health
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /health/live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	h.Success(c, gin.H{"status": "ok", "version": h.version})
}

// Ready godoc
// @Summary      Readiness probe
// @Description  Ping every dependency; any failure turns the answer into a 503 naming the failed checks
// @Tags         health
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /health [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			results[name] = err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success: false,
			Data:    gin.H{"status": "unavailable", "version": h.version, "checks": results},
			Error: &dto.ErrorInfo{
				Code:    dto.ErrCodePersistenceFailure,
				Message: "A dependency is unavailable",
			},
		})
		return
	}
	h.Success(c, gin.H{"status": "ok", "version": h.version, "checks": results})
}
