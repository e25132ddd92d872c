package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"inmobiliaria-portal/internal/database"
	"inmobiliaria-portal/internal/geo"
	"inmobiliaria-portal/internal/logger"
	"inmobiliaria-portal/internal/models"
	"inmobiliaria-portal/internal/search"
	"inmobiliaria-portal/internal/storage"
)

// PropertyHandler handles property-related requests
type PropertyHandler struct {
	store  *database.Store
	search *search.SearchClient
}

// NewPropertyHandler creates a new property handler
func NewPropertyHandler(store *database.Store, searchClient *search.SearchClient) *PropertyHandler {
	return &PropertyHandler{store: store, search: searchClient}
}

// List returns all properties, newest first
func (h *PropertyHandler) List(c *gin.Context) {
	properties, err := h.store.List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, properties)
}

// Featured returns the currently featured properties
func (h *PropertyHandler) Featured(c *gin.Context) {
	properties, err := h.store.ListFeatured()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, properties)
}

// Get returns one property by id
func (h *PropertyHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	property, err := h.store.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, property)
}

// Create creates a property from a multipart form, storing any attached
// images under the `images[]` field
func (h *PropertyHandler) Create(c *gin.Context) {
	form, uploads, ok := bindPropertyForm(c)
	if !ok {
		return
	}

	property, err := h.store.Create(c.Request.Context(), form, uploads)
	if err != nil {
		respondError(c, err)
		return
	}

	h.indexAsync(property)
	c.JSON(http.StatusCreated, property)
}

// Update replaces all mutable fields of a property and appends any
// newly attached images
func (h *PropertyHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	form, uploads, ok := bindPropertyForm(c)
	if !ok {
		return
	}

	property, err := h.store.Update(c.Request.Context(), id, form, uploads)
	if err != nil {
		respondError(c, err)
		return
	}

	h.indexAsync(property)
	c.JSON(http.StatusOK, property)
}

// Delete removes a property with its images and reports how many image
// rows were removed
func (h *PropertyHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	deleted, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.search != nil {
		go func() {
			if err := h.search.RemoveProperty(id); err != nil {
				logger.Log.Warnf("Handler: failed to remove property %d from search index: %v", id, err)
			}
		}()
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "property deleted",
		"deletedImages": deleted,
	})
}

// ListImages returns the image rows of a property as {id, url} pairs
func (h *PropertyHandler) ListImages(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	images, err := h.store.Images(id)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(images))
	for _, img := range images {
		out = append(out, gin.H{"id": img.ID, "url": img.ImageURL})
	}
	c.JSON(http.StatusOK, out)
}

// DeleteImage removes a single image row of a property
func (h *PropertyHandler) DeleteImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	imageID, ok := parseID(c, "imageId")
	if !ok {
		return
	}

	if err := h.store.DeleteImage(id, imageID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "image deleted"})
}

// ToggleFeatured flips a property's featured flag, enforcing the cap
func (h *PropertyHandler) ToggleFeatured(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	property, err := h.store.ToggleFeatured(id)
	if err != nil {
		respondError(c, err)
		return
	}

	h.indexAsync(property)
	c.JSON(http.StatusOK, gin.H{
		"id":       property.ID,
		"title":    property.Title,
		"featured": property.Featured,
	})
}

// Nearby returns properties within a radius of a point, closest first
func (h *PropertyHandler) Nearby(c *gin.Context) {
	latStr := c.Query("lat")
	lngStr := c.Query("lng")
	if latStr == "" || lngStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng query parameters are required"})
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || !geo.ValidLatitude(lat) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat must be a number between -90 and 90"})
		return
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil || !geo.ValidLongitude(lng) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lng must be a number between -180 and 180"})
		return
	}

	radius := geo.DefaultRadiusMeters
	if radiusStr := c.Query("radius"); radiusStr != "" {
		r, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil || r < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "radius must be a non-negative number"})
			return
		}
		radius = r
	}

	properties, err := h.store.FindNearby(lat, lng, radius)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, properties)
}

// WithCoordinates returns every property carrying a coordinate pair
func (h *PropertyHandler) WithCoordinates(c *gin.Context) {
	properties, err := h.store.WithCoordinates()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, properties)
}

// indexAsync pushes a property into the search index without blocking
// the response; index failures are logged, never surfaced
func (h *PropertyHandler) indexAsync(property *models.Property) {
	if h.search == nil || property == nil {
		return
	}
	p := *property
	go func() {
		if err := h.search.IndexProperty(&p); err != nil {
			logger.Log.Warnf("Handler: failed to index property %d: %v", p.ID, err)
		}
	}()
}

// parseID reads a positive integer path parameter, answering 400 itself
// when the value is unusable
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// bindPropertyForm binds and validates the multipart payload of a
// create/update request and reads its attached image files
func bindPropertyForm(c *gin.Context) (*models.PropertyForm, []storage.Upload, bool) {
	var form models.PropertyForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed form payload: " + err.Error()})
		return nil, nil, false
	}

	if fields := form.Validate(); len(fields) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"fields": fields,
		})
		return nil, nil, false
	}

	uploads, err := readUploads(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image uploads: " + err.Error()})
		return nil, nil, false
	}

	return &form, uploads, true
}

// readUploads collects the files attached under images[] (or images)
func readUploads(c *gin.Context) ([]storage.Upload, error) {
	mpForm, err := c.MultipartForm()
	if err != nil {
		// No multipart body at all means no attachments
		if err == http.ErrNotMultipart {
			return nil, nil
		}
		return nil, err
	}

	files := mpForm.File["images[]"]
	if len(files) == 0 {
		files = mpForm.File["images"]
	}

	uploads := make([]storage.Upload, 0, len(files))
	for _, fh := range files {
		up, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, up)
	}
	return uploads, nil
}

func readUpload(fh *multipart.FileHeader) (storage.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return storage.Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return storage.Upload{}, err
	}

	return storage.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
