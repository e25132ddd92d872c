package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"inmobiliaria-portal/internal/database"
)

// HealthHandler reports liveness and database connectivity
type HealthHandler struct {
	conn        *sql.DB
	store       *database.Store
	storageKind string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(conn *sql.DB, store *database.Store, storageKind string) *HealthHandler {
	return &HealthHandler{conn: conn, store: store, storageKind: storageKind}
}

// Check answers 200 when the database is reachable, 503 otherwise
func (h *HealthHandler) Check(c *gin.Context) {
	if err := h.conn.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database unreachable",
		})
		return
	}

	properties, images, err := h.store.Counts()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database query failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"storage":    h.storageKind,
		"properties": properties,
		"images":     images,
	})
}
