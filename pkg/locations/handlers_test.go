package locations

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/verdantlab/floralog/internal/db"
	"github.com/verdantlab/floralog/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	return gdb
}

func strPtr(s string) *string { return &s }

func seedLocation(t *testing.T, store *Store, name string, opts ...func(*models.SamplingLocation)) *models.SamplingLocation {
	t.Helper()
	record := &models.SamplingLocation{
		LocationID: uuid.New().String(),
		Name:       strPtr(name),
	}
	for _, opt := range opts {
		opt(record)
	}
	require.NoError(t, store.Create(record))
	return record
}

func TestCreateHandler_StoresAndNormalizesCoordinates(t *testing.T) {
	r := NewRouter(NewStore(newTestDB(t)))

	payload := `{"name":"Monte Pellegrino","region":"Sicilia","country":"Italy","latitude":38.1664,"longitude":13.3524}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var created Location
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotNil(t, created.Coordinates)
	assert.InDelta(t, 13.3524, created.Coordinates.Longitude(), 1e-6)
	assert.InDelta(t, 38.1664, created.Coordinates.Latitude(), 1e-6)
	// Country is lifted out of the metadata mapping.
	assert.Equal(t, "Italy", created.Country)
	assert.Equal(t, "Italy", created.Metadata["country"])
}

func TestCreateHandler_RejectsOutOfRangeLatitude(t *testing.T) {
	gdb := newTestDB(t)
	r := NewRouter(NewStore(gdb))

	payload := `{"name":"Bad","latitude":100,"longitude":13.35}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	// No row was inserted.
	var count int64
	require.NoError(t, gdb.Model(&models.SamplingLocation{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCreateHandler_WithoutCoordinates(t *testing.T) {
	r := NewRouter(NewStore(newTestDB(t)))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Herbarium"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var created Location
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Nil(t, created.Coordinates)
	assert.Nil(t, created.Country)
}

func TestListHandler_RegionFilter(t *testing.T) {
	store := NewStore(newTestDB(t))
	seedLocation(t, store, "Monte Pellegrino", func(l *models.SamplingLocation) {
		l.Region = strPtr("Sicilia")
	})
	seedLocation(t, store, "Gran Sasso", func(l *models.SamplingLocation) {
		l.Region = strPtr("Abruzzo")
	})
	r := NewRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/?region=sicil", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var records []Location
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "Monte Pellegrino", *records[0].Name)
}

func TestGetHandler_ParsesStoredPoint(t *testing.T) {
	store := NewStore(newTestDB(t))
	seeded := seedLocation(t, store, "Monte Pellegrino", func(l *models.SamplingLocation) {
		text := "SRID=4326;POINT(13.352400 38.166400)"
		l.Coordinates = &text
	})
	r := NewRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/"+seeded.LocationID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	// The stored EWKT text never leaks untranslated: the response carries
	// GeoJSON with longitude first.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	coords, ok := raw["coordinates"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Point", coords["type"])
	pair, ok := coords["coordinates"].([]any)
	require.True(t, ok)
	require.Len(t, pair, 2)
	assert.InDelta(t, 13.3524, pair[0].(float64), 1e-6)
	assert.InDelta(t, 38.1664, pair[1].(float64), 1e-6)
}

func TestUpdateHandler_ClearsCoordinatesOnOmission(t *testing.T) {
	store := NewStore(newTestDB(t))
	seeded := seedLocation(t, store, "Monte Pellegrino", func(l *models.SamplingLocation) {
		text := "SRID=4326;POINT(13.352400 38.166400)"
		l.Coordinates = &text
	})
	r := NewRouter(store)

	req := httptest.NewRequest(http.MethodPut, "/"+seeded.LocationID, strings.NewReader(`{"name":"Renamed"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var updated Location
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Renamed", *updated.Name)
	assert.Nil(t, updated.Coordinates)
}

func TestUpdateHandler_NotFound(t *testing.T) {
	r := NewRouter(NewStore(newTestDB(t)))

	req := httptest.NewRequest(http.MethodPut, "/no-such-id", strings.NewReader(`{"name":"X"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteHandler_NotFound(t *testing.T) {
	r := NewRouter(NewStore(newTestDB(t)))

	req := httptest.NewRequest(http.MethodDelete, "/no-such-id", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
