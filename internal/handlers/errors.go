package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"inmobiliaria-portal/internal/database"
	"inmobiliaria-portal/internal/logger"
	"inmobiliaria-portal/internal/models"
	"inmobiliaria-portal/internal/storage"
)

// respondError translates store and pipeline errors into an HTTP status
// with a JSON body. Constraint violations coming back from PostgreSQL
// are surfaced as validation errors naming the offending column; every
// unclassified error becomes an opaque 500.
func respondError(c *gin.Context, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
		return
	}

	var ferr *database.FeaturedLimitError
	if errors.As(err, &ferr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    ferr.Error(),
			"featured": ferr.Current,
		})
		return
	}

	switch {
	case errors.Is(err, database.ErrPropertyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
		return
	case errors.Is(err, database.ErrImageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		return
	case errors.Is(err, storage.ErrNotImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "only image uploads are accepted"})
		return
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23502": // not_null_violation
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("%s is required", pqErr.Column),
			})
			return
		case "23505": // unique_violation
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("duplicate value violates constraint %s", pqErr.Constraint),
			})
			return
		case "23514": // check_violation
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("value violates constraint %s", pqErr.Constraint),
			})
			return
		}
	}

	logger.Log.Errorf("Handler: unhandled error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
