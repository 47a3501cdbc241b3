package samples

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verdantlab/floralog/internal/httputil"
	"github.com/verdantlab/floralog/internal/models"
	"github.com/verdantlab/floralog/pkg/geocode"
	"github.com/verdantlab/floralog/pkg/geometry"
)

// Geocoder resolves a coordinate pair into administrative place names. nil
// disables enrichment of implicitly created locations.
type Geocoder interface {
	Reverse(ctx context.Context, latitude, longitude float64) (*geocode.Place, error)
}

// numeric accepts a JSON number or a numeric string, the way form-backed
// clients submit readings. Empty strings and null decode to absent.
type numeric struct {
	value *float64
}

func (n *numeric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		n.value = &f
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	n.value = &f
	return nil
}

// dateValue accepts an RFC3339 timestamp or a plain date. Empty strings and
// null decode to absent.
type dateValue struct {
	value *time.Time
}

func (d *dateValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.value = &t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

// sampleEntry is one plant within a write request.
type sampleEntry struct {
	ScientificName string         `json:"scientific_name"`
	CommonName     *string        `json:"common_name"`
	Notes          *string        `json:"notes"`
	Attributes     models.JSONMap `json:"attributes"`
}

// envFields is the environmental-reading payload, either nested under
// "environmental" or flattened at the top level of a batch request.
type envFields struct {
	Temperature numeric        `json:"temperature"`
	Humidity    numeric        `json:"humidity"`
	SoilPH      numeric        `json:"soil_ph"`
	Altitude    numeric        `json:"altitude"`
	SoilType    *string        `json:"soil_type"`
	Extra       models.JSONMap `json:"extra"`
}

// reading assembles the payload into a row, or nil when every field is
// empty.
func (e *envFields) reading() *models.EnvironmentalCondition {
	if e == nil {
		return nil
	}
	soilType := e.SoilType
	if soilType != nil && *soilType == "" {
		soilType = nil
	}
	if e.Temperature.value == nil && e.Humidity.value == nil && e.SoilPH.value == nil &&
		e.Altitude.value == nil && soilType == nil && len(e.Extra) == 0 {
		return nil
	}
	return &models.EnvironmentalCondition{
		Temperature: e.Temperature.value,
		Humidity:    e.Humidity.value,
		SoilPH:      e.SoilPH.value,
		Altitude:    e.Altitude.value,
		SoilType:    soilType,
		Extra:       e.Extra,
	}
}

// pickedPoint is the coordinate pair reported by the map picker.
type pickedPoint struct {
	Lat  numeric `json:"lat"`
	Lng  numeric `json:"lng"`
	Desc string  `json:"desc"`
}

// writeRequest is the body accepted by create and update: either a
// single-sample shape or a batch under "samples", with a shared location,
// researcher, date, and environmental payload.
type writeRequest struct {
	sampleEntry
	envFields
	Samples       []sampleEntry `json:"samples"`
	LocationID    *string       `json:"location_id"`
	ResearcherID  *string       `json:"researcher_id"`
	SampleDate    dateValue     `json:"sample_date"`
	Coordinates   *pickedPoint  `json:"coordinates"`
	Environmental *envFields    `json:"environmental"`
}

// entries returns the plant entries of the request, folding the single-sample
// shape into a one-element batch.
func (body *writeRequest) entries() []sampleEntry {
	if len(body.Samples) > 0 {
		return body.Samples
	}
	if body.ScientificName != "" || body.CommonName != nil || body.Notes != nil {
		return []sampleEntry{body.sampleEntry}
	}
	return nil
}

// sharedReading picks the environmental payload: the nested object wins over
// the flattened batch fields.
func (body *writeRequest) sharedReading() *models.EnvironmentalCondition {
	if body.Environmental != nil {
		return body.Environmental.reading()
	}
	return body.envFields.reading()
}

func optional(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return p
}

// listHandler returns a handler that lists samples with optional
// researcher_id, location_id, and limit filters.
func listHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := ListFilter{
			ResearcherID: r.URL.Query().Get("researcher_id"),
			LocationID:   r.URL.Query().Get("location_id"),
		}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 0 {
				httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
				return
			}
			filter.Limit = limit
		}

		records, err := store.List(filter)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusOK, ShapeAll(records))
	}
}

// createHandler returns a handler that logs one or more samples. A batch is
// all-or-nothing: if any entry is missing its scientific name, the whole
// request is rejected before any row is written. A fresh coordinate pair
// without a location id creates the location implicitly, enriched through
// the reverse geocoder when one is configured, and inserted in the same
// transaction as the samples.
func createHandler(store *Store, geocoder Geocoder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body writeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		entries := body.entries()
		if len(entries) == 0 {
			httputil.WriteError(w, http.StatusBadRequest, "scientific_name is required")
			return
		}
		for _, entry := range entries {
			if entry.ScientificName == "" {
				httputil.WriteError(w, http.StatusBadRequest, "scientific_name is required for every sample")
				return
			}
		}

		locationID := optional(body.LocationID)
		var pickedLocation *models.SamplingLocation
		if locationID == nil && body.Coordinates != nil &&
			body.Coordinates.Lat.value != nil && body.Coordinates.Lng.value != nil {
			built, status, err := buildPickedLocation(r.Context(), geocoder, body.Coordinates)
			if err != nil {
				httputil.WriteError(w, status, err.Error())
				return
			}
			pickedLocation = built
			locationID = &built.LocationID
		}

		sampleDate := time.Now()
		if body.SampleDate.value != nil {
			sampleDate = *body.SampleDate.value
		}

		records := make([]*models.PlantSample, len(entries))
		for i, entry := range entries {
			records[i] = &models.PlantSample{
				SampleID:       uuid.New().String(),
				ScientificName: entry.ScientificName,
				CommonName:     optional(entry.CommonName),
				Notes:          optional(entry.Notes),
				SampleDate:     sampleDate,
				LocationID:     locationID,
				ResearcherID:   optional(body.ResearcherID),
				Attributes:     entry.Attributes,
			}
		}

		if err := store.CreateBatch(records, body.sharedReading(), pickedLocation); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}

		shaped := make([]Sample, len(records))
		for i, record := range records {
			reloaded, err := store.Get(record.SampleID)
			if err != nil || reloaded == nil {
				httputil.WriteError(w, http.StatusInternalServerError, "failed to reload created sample")
				return
			}
			shaped[i] = Shape(*reloaded)
		}

		if len(body.Samples) > 0 {
			httputil.WriteJSON(w, http.StatusCreated, shaped)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, shaped[0])
	}
}

// buildPickedLocation validates a picked coordinate pair and assembles the
// implicit location row, geocoder-enriched when available. The caller
// inserts it alongside the samples.
func buildPickedLocation(ctx context.Context, geocoder Geocoder, picked *pickedPoint) (*models.SamplingLocation, int, error) {
	lat, lng := *picked.Lat.value, *picked.Lng.value
	if !geometry.Valid(lat, lng) {
		return nil, http.StatusBadRequest, fmt.Errorf("coordinates out of range: latitude %v, longitude %v", lat, lng)
	}

	record := &models.SamplingLocation{
		LocationID: uuid.New().String(),
	}
	if picked.Desc != "" {
		desc := picked.Desc
		record.Name = &desc
	}
	text := geometry.BuildPoint(&lat, &lng)
	record.Coordinates = &text

	if geocoder != nil {
		place, err := geocoder.Reverse(ctx, lat, lng)
		if err != nil {
			return nil, http.StatusBadGateway, fmt.Errorf("reverse geocoding failed: %v", err)
		}
		if place.Municipality != "" {
			record.Municipality = &place.Municipality
		}
		if place.Province != "" {
			record.Province = &place.Province
		}
		metadata := models.JSONMap{}
		if place.Country != "" {
			metadata["country"] = place.Country
		}
		if place.PostalCode != "" {
			metadata["postal_code"] = place.PostalCode
		}
		if place.Raw != nil {
			metadata["geocode"] = map[string]any(place.Raw)
		}
		if len(metadata) > 0 {
			record.Metadata = metadata
		}
	}

	return record, 0, nil
}

// getHandler returns a handler that reads one sample by id.
func getHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := store.Get(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if record == nil {
			httputil.WriteError(w, http.StatusNotFound, "sample not found")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, Shape(*record))
	}
}

// updateHandler returns a handler that replaces a sample and its
// environmental reading as a unit.
func updateHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body writeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		entries := body.entries()
		if len(entries) == 0 || entries[0].ScientificName == "" {
			httputil.WriteError(w, http.StatusBadRequest, "scientific_name is required")
			return
		}
		entry := entries[0]

		record := &models.PlantSample{
			SampleID:       chi.URLParam(r, "id"),
			ScientificName: entry.ScientificName,
			CommonName:     optional(entry.CommonName),
			Notes:          optional(entry.Notes),
			LocationID:     optional(body.LocationID),
			ResearcherID:   optional(body.ResearcherID),
			Attributes:     entry.Attributes,
		}
		if body.SampleDate.value != nil {
			record.SampleDate = *body.SampleDate.value
		}

		if err := store.Update(record, body.sharedReading()); err != nil {
			if err == gorm.ErrRecordNotFound {
				httputil.WriteError(w, http.StatusNotFound, "sample not found")
				return
			}
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}

		updated, err := store.Get(record.SampleID)
		if err != nil || updated == nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to reload sample")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, Shape(*updated))
	}
}

// deleteHandler returns a handler that removes a sample and its readings.
func deleteHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := store.Delete(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if n == 0 {
			httputil.WriteError(w, http.StatusNotFound, "sample not found")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Sample deleted successfully"})
	}
}
