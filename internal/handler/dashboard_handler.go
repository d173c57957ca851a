package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/prefect-api/internal/middleware"
	"github.com/noah-isme/prefect-api/internal/models"
	"github.com/noah-isme/prefect-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context) (*models.DashboardSummary, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary Dashboard overview
// @Description Counts of pending work across the prefect board; meta.cache_hit reports whether the result was cached
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	start := time.Now()
	summary, cacheHit, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, summaryMeta(c, summary, start))
}

// summaryMeta reports how old a possibly cached summary is.
func summaryMeta(c *gin.Context, summary *models.DashboardSummary, start time.Time) map[string]interface{} {
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	if summary != nil && !summary.GeneratedAt.IsZero() {
		meta["generated_at"] = summary.GeneratedAt.UTC().Format(time.RFC3339)
		meta["age_seconds"] = int64(start.Sub(summary.GeneratedAt).Seconds())
	}
	return meta
}
