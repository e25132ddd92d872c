package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"inmobiliaria-portal/internal/database"
	"inmobiliaria-portal/internal/logger"
	"inmobiliaria-portal/internal/search"
)

// SearchHandler handles catalog search requests backed by Meilisearch
type SearchHandler struct {
	store  *database.Store
	search *search.SearchClient
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(store *database.Store, searchClient *search.SearchClient) *SearchHandler {
	return &SearchHandler{store: store, search: searchClient}
}

// Search performs a filtered catalog search
func (h *SearchHandler) Search(c *gin.Context) {
	params := search.FilterParams{
		Query:  c.Query("q"),
		City:   c.Query("city"),
		Status: c.Query("status"),
		SortBy: c.Query("sort"),
	}

	if v := c.Query("min_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			params.MinPrice = &f
		}
	}
	if v := c.Query("max_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			params.MaxPrice = &f
		}
	}
	if v := c.Query("type"); v != "" {
		params.Types = strings.Split(v, ",")
	}
	if v := c.Query("min_bedrooms"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.MinBedrooms = &n
		}
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			params.Limit = n
		}
	}

	properties, err := h.search.FilterSearch(params)
	if err != nil {
		logger.Log.Errorf("Search: query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"properties": properties,
		"count":      len(properties),
	})
}

// Facets returns facet distributions for the catalog filters
func (h *SearchHandler) Facets(c *gin.Context) {
	facets, err := h.search.GetFacets([]string{"type", "status", "city", "featured"})
	if err != nil {
		logger.Log.Errorf("Search: facets failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search unavailable"})
		return
	}
	c.JSON(http.StatusOK, facets)
}

// Reindex rebuilds the search index from the database
func (h *SearchHandler) Reindex(c *gin.Context) {
	properties, err := h.store.List()
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.search.IndexProperties(properties); err != nil {
		logger.Log.Errorf("Search: reindex failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reindex failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "reindex completed",
		"indexed": len(properties),
	})
}
