package locations

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verdantlab/floralog/internal/httputil"
	"github.com/verdantlab/floralog/internal/models"
	"github.com/verdantlab/floralog/pkg/geometry"
)

// Location is the client-facing shape of a sampling location: coordinates
// normalized to GeoJSON and country lifted out of the metadata mapping.
type Location struct {
	LocationID   string          `json:"location_id"`
	Name         *string         `json:"name"`
	Description  *string         `json:"description"`
	Region       *string         `json:"region"`
	Municipality *string         `json:"municipality"`
	Province     *string         `json:"province"`
	Country      any             `json:"country"`
	Coordinates  *geometry.Point `json:"coordinates"`
	Metadata     models.JSONMap  `json:"metadata"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Shape converts a stored row into the client-facing Location.
func Shape(record models.SamplingLocation) Location {
	var coordinates *geometry.Point
	if record.Coordinates != nil {
		coordinates = geometry.ParsePoint(*record.Coordinates)
	}

	var country any
	if record.Metadata != nil {
		if v, ok := record.Metadata["country"]; ok {
			country = v
		}
	}

	return Location{
		LocationID:   record.LocationID,
		Name:         record.Name,
		Description:  record.Description,
		Region:       record.Region,
		Municipality: record.Municipality,
		Province:     record.Province,
		Country:      country,
		Coordinates:  coordinates,
		Metadata:     record.Metadata,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}

// ShapeAll applies Shape to every record.
func ShapeAll(records []models.SamplingLocation) []Location {
	shaped := make([]Location, len(records))
	for i, record := range records {
		shaped[i] = Shape(record)
	}
	return shaped
}

// writeRequest is the body accepted by create and update. Coordinates arrive
// as a latitude/longitude pair and are rendered to the stored textual form
// at this boundary.
type writeRequest struct {
	Name         *string        `json:"name"`
	Description  *string        `json:"description"`
	Region       *string        `json:"region"`
	Municipality *string        `json:"municipality"`
	Province     *string        `json:"province"`
	Country      *string        `json:"country"`
	Latitude     *float64       `json:"latitude"`
	Longitude    *float64       `json:"longitude"`
	Metadata     models.JSONMap `json:"metadata"`
}

// toRecord validates the body and assembles the row to persist.
func (body *writeRequest) toRecord(id string) (*models.SamplingLocation, error) {
	if body.Latitude != nil && !between(*body.Latitude, -90, 90) {
		return nil, fmt.Errorf("latitude must be between -90 and 90")
	}
	if body.Longitude != nil && !between(*body.Longitude, -180, 180) {
		return nil, fmt.Errorf("longitude must be between -180 and 180")
	}

	metadata := body.Metadata
	if body.Country != nil && *body.Country != "" {
		if metadata == nil {
			metadata = models.JSONMap{}
		}
		metadata["country"] = *body.Country
	}

	record := &models.SamplingLocation{
		LocationID:   id,
		Name:         body.Name,
		Description:  body.Description,
		Region:       body.Region,
		Municipality: body.Municipality,
		Province:     body.Province,
		Metadata:     metadata,
	}
	if text := geometry.BuildPoint(body.Latitude, body.Longitude); text != "" {
		record.Coordinates = &text
	}
	return record, nil
}

func between(v, lo, hi float64) bool { return v >= lo && v <= hi }

// listHandler returns a handler that lists locations, optionally filtered by
// a region substring.
func listHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := store.List(r.URL.Query().Get("region"))
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusOK, ShapeAll(records))
	}
}

// createHandler returns a handler that registers a sampling location.
// Administrative fields come from the caller as-is; reverse geocoding only
// happens on the implicit create inside the sample flow.
func createHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body writeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		record, err := body.toRecord(uuid.New().String())
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := store.Create(record); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, Shape(*record))
	}
}

// getHandler returns a handler that reads one location by id.
func getHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := store.Get(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if record == nil {
			httputil.WriteError(w, http.StatusNotFound, "location not found")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, Shape(*record))
	}
}

// updateHandler returns a handler that replaces a location. Omitting the
// coordinate pair clears the stored point; this is a full replace, not a
// patch.
func updateHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body writeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		record, err := body.toRecord(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := store.Update(record); err != nil {
			if err == gorm.ErrRecordNotFound {
				httputil.WriteError(w, http.StatusNotFound, "location not found")
				return
			}
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}

		updated, err := store.Get(record.LocationID)
		if err != nil || updated == nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to reload location")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, Shape(*updated))
	}
}

// deleteHandler returns a handler that removes a location.
func deleteHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := store.Delete(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if n == 0 {
			httputil.WriteError(w, http.StatusNotFound, "location not found")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Location deleted successfully"})
	}
}
