package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"inmobiliaria-portal/internal/database"
	"inmobiliaria-portal/internal/logger"
	"inmobiliaria-portal/internal/ratelimit"
	"inmobiliaria-portal/internal/scheduler"
)

// AdminHandler handles admin-panel requests
type AdminHandler struct {
	store     *database.Store
	scheduler *scheduler.Scheduler
	limiter   *ratelimit.Limiter
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(store *database.Store, sched *scheduler.Scheduler, limiter *ratelimit.Limiter) *AdminHandler {
	return &AdminHandler{
		store:     store,
		scheduler: sched,
		limiter:   limiter,
	}
}

// GetStats returns the overview counters for the admin dashboard
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.store.Stats()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetCityStats returns listing counts for the most active cities
func (h *AdminHandler) GetCityStats(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "20")
	limit, _ := strconv.Atoi(limitStr)

	stats, err := h.store.CityStats(limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"city_stats": stats,
		"count":      len(stats),
	})
}

// GetPriceDistribution returns listing counts per price band
func (h *AdminHandler) GetPriceDistribution(c *gin.Context) {
	bands, err := h.store.PriceDistribution()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"price_distribution": bands,
	})
}

// GetRecentActivity returns the most recently touched listings
func (h *AdminHandler) GetRecentActivity(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, _ := strconv.Atoi(limitStr)

	properties, err := h.store.RecentActivity(limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"properties": properties,
		"count":      len(properties),
	})
}

// RunMaintenance manually triggers the maintenance job (reindex plus
// orphan sweep)
func (h *AdminHandler) RunMaintenance(c *gin.Context) {
	logger.Log.Info("Admin: Manual maintenance trigger requested")

	// Run in goroutine to avoid blocking; the request context would be
	// canceled as soon as this response is written
	go func() {
		if err := h.scheduler.RunNow(context.Background()); err != nil {
			logger.Log.Errorf("Admin: Manual maintenance failed: %v", err)
		} else {
			logger.Log.Info("Admin: Manual maintenance completed successfully")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"message": "maintenance job started",
		"status":  "running",
	})
}

// GetRateLimitStats returns current write limiter counters
func (h *AdminHandler) GetRateLimitStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.limiter.GetStats())
}
