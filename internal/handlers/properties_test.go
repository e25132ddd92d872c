package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"inmobiliaria-portal/internal/database"
	"inmobiliaria-portal/internal/models"
	"inmobiliaria-portal/internal/storage"
)

type stubBackend struct {
	objects map[string]bool
	saves   int
}

func newStubBackend() *stubBackend {
	return &stubBackend{objects: make(map[string]bool)}
}

func (b *stubBackend) Kind() string { return "stub" }

func (b *stubBackend) Save(_ context.Context, propertyID int64, up storage.Upload) (string, error) {
	if !storage.IsImage(up.ContentType) {
		return "", storage.ErrNotImage
	}
	b.saves++
	url := fmt.Sprintf("/uploads/%d_%d.png", propertyID, b.saves)
	b.objects[url] = true
	return url, nil
}

func (b *stubBackend) Delete(_ context.Context, publicURL string) error {
	delete(b.objects, publicURL)
	return nil
}

func (b *stubBackend) List(_ context.Context) ([]string, error) {
	urls := make([]string, 0, len(b.objects))
	for u := range b.objects {
		urls = append(urls, u)
	}
	return urls, nil
}

const testSchema = `
CREATE TABLE properties (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	price REAL NOT NULL,
	city TEXT NOT NULL,
	type TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'disponible',
	address TEXT NOT NULL DEFAULT '',
	bedrooms INTEGER,
	bathrooms INTEGER,
	area INTEGER,
	covered_area INTEGER,
	patio TEXT NOT NULL DEFAULT 'No Tiene',
	garage TEXT NOT NULL DEFAULT 'No Tiene',
	latitude REAL,
	longitude REAL,
	featured INTEGER NOT NULL DEFAULT 0,
	published_date DATETIME NOT NULL,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE property_images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	property_id INTEGER NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
	image_url TEXT NOT NULL,
	created_at DATETIME
);
`

func newTestRouter(t *testing.T) (*gin.Engine, *database.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, db.Exec(testSchema).Error)

	store := database.NewStore(db, newStubBackend())
	h := NewPropertyHandler(store, nil)

	r := gin.New()
	api := r.Group("/api")
	api.GET("/properties", h.List)
	api.GET("/properties/featured", h.Featured)
	api.GET("/properties/nearby", h.Nearby)
	api.GET("/properties/with-coordinates", h.WithCoordinates)
	api.GET("/properties/:id", h.Get)
	api.GET("/properties/:id/images", h.ListImages)
	api.POST("/properties", h.Create)
	api.PUT("/properties/:id", h.Update)
	api.DELETE("/properties/:id", h.Delete)
	api.DELETE("/properties/:id/images/:imageId", h.DeleteImage)
	api.PATCH("/properties/:id/featured", h.ToggleFeatured)

	return r, store
}

func do(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// propertyRequest builds a multipart create/update request with the
// given fields and a number of attached PNG files under images[]
func propertyRequest(t *testing.T, method, url string, fields map[string]string, imageCount int) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for i := 0; i < imageCount; i++ {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="images[]"; filename="foto%d.png"`, i)}
		header["Content-Type"] = []string{"image/png"}
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte("png bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func validFields() map[string]string {
	return map[string]string{
		"title":       "Casa Test",
		"description": "Casa con patio en barrio tranquilo",
		"price":       "150000",
		"city":        "Córdoba",
		"type":        "casa",
		"latitude":    "-31.4",
		"longitude":   "-64.2",
	}
}

func TestCreateProperty(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, propertyRequest(t, http.MethodPost, "/api/properties", validFields(), 2))
	require.Equal(t, http.StatusCreated, w.Code)

	var prop models.Property
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prop))
	require.Equal(t, "Casa Test", prop.Title)
	require.Equal(t, models.PropertyStatusDisponible, prop.Status)
	require.False(t, prop.Featured)
	require.Len(t, prop.Images, 2)
}

func TestCreatePropertyValidation(t *testing.T) {
	r, store := newTestRouter(t)

	fields := validFields()
	delete(fields, "price")
	fields["type"] = "castillo"

	w := do(r, propertyRequest(t, http.MethodPost, "/api/properties", fields, 0))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error  string   `json:"error"`
		Fields []string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "validation failed", resp.Error)
	require.Contains(t, resp.Fields, "price is required")
	require.Len(t, resp.Fields, 2, "every failing field appears once")

	props, err := store.List()
	require.NoError(t, err)
	require.Empty(t, props, "rejected payload writes nothing")
}

func TestGetProperty(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, propertyRequest(t, http.MethodPost, "/api/properties", validFields(), 0))
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Property
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = do(r, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/properties/%d", created.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Property
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, created.ID, got.ID)
	require.NotNil(t, got.Images)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/properties/999999", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/properties/abc", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdatePropertyNotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, propertyRequest(t, http.MethodPut, "/api/properties/999999", validFields(), 0))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteProperty(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, propertyRequest(t, http.MethodPost, "/api/properties", validFields(), 2))
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Property
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = do(r, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/properties/%d", created.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Message       string `json:"message"`
		DeletedImages int    `json:"deletedImages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.DeletedImages)

	w = do(r, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/properties/%d", created.ID), nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/properties/%d", created.ID), nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListImagesAndDeleteImage(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, propertyRequest(t, http.MethodPost, "/api/properties", validFields(), 2))
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Property
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = do(r, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/properties/%d/images", created.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var images []struct {
		ID  int64  `json:"id"`
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &images))
	require.Len(t, images, 2)

	w = do(r, httptest.NewRequest(http.MethodDelete,
		fmt.Sprintf("/api/properties/%d/images/%d", created.ID, images[0].ID), nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, httptest.NewRequest(http.MethodDelete,
		fmt.Sprintf("/api/properties/%d/images/%d", created.ID, images[0].ID), nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestToggleFeaturedEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	ids := make([]int64, 0, models.MaxFeatured+1)
	for i := 0; i <= models.MaxFeatured; i++ {
		w := do(r, propertyRequest(t, http.MethodPost, "/api/properties", validFields(), 0))
		require.Equal(t, http.StatusCreated, w.Code)
		var created models.Property
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		ids = append(ids, created.ID)
	}

	for _, id := range ids[:models.MaxFeatured] {
		w := do(r, httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/api/properties/%d/featured", id), nil))
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			ID       int64  `json:"id"`
			Title    string `json:"title"`
			Featured bool   `json:"featured"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, id, resp.ID)
		require.True(t, resp.Featured)
	}

	// The over-cap toggle carries the current featured set
	w := do(r, httptest.NewRequest(http.MethodPatch,
		fmt.Sprintf("/api/properties/%d/featured", ids[models.MaxFeatured]), nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var limitResp struct {
		Error    string                   `json:"error"`
		Featured []models.FeaturedSummary `json:"featured"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &limitResp))
	require.Len(t, limitResp.Featured, models.MaxFeatured)

	w = do(r, httptest.NewRequest(http.MethodPatch, "/api/properties/abc/featured", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNearbyEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, propertyRequest(t, http.MethodPost, "/api/properties", validFields(), 0))
	require.Equal(t, http.StatusCreated, w.Code)

	// Missing coordinates
	w = do(r, httptest.NewRequest(http.MethodGet, "/api/properties/nearby", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/properties/nearby?lat=-31.4", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/properties/nearby?lat=91&lng=0", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/properties/nearby?lat=-31.4&lng=-64.2&radius=banana", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	// The inserted property sits at the query point
	w = do(r, httptest.NewRequest(http.MethodGet, "/api/properties/nearby?lat=-31.4&lng=-64.2&radius=1000", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var results []models.Property
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Distance)
	require.LessOrEqual(t, *results[0].Distance, 1000.0)
}

func TestFeaturedListEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, propertyRequest(t, http.MethodPost, "/api/properties", validFields(), 0))
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/properties/featured", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var results []models.Property
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Empty(t, results, "nothing is featured by default")
}
