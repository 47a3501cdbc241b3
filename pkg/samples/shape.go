package samples

import (
	"time"

	"github.com/verdantlab/floralog/internal/models"
	"github.com/verdantlab/floralog/pkg/locations"
	"github.com/verdantlab/floralog/pkg/researchers"
)

// Sample is the client-facing shape of a plant sample: joined relations
// collapsed to singletons and nested records normalized.
type Sample struct {
	SampleID       string         `json:"sample_id"`
	ScientificName string         `json:"scientific_name"`
	CommonName     *string        `json:"common_name"`
	Notes          *string        `json:"notes"`
	SampleDate     time.Time      `json:"sample_date"`
	LocationID     *string        `json:"location_id"`
	ResearcherID   *string        `json:"researcher_id"`
	Attributes     models.JSONMap `json:"attributes"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	SamplingLocation       *locations.Location            `json:"sampling_location"`
	Researcher             *models.Researcher             `json:"researcher"`
	EnvironmentalCondition *models.EnvironmentalCondition `json:"environmental_condition"`
}

// LatestReading collapses the one-to-many environmental relation to the
// single current reading: the most recent recorded_at wins, not whichever
// row the store happened to return first.
func LatestReading(readings []models.EnvironmentalCondition) *models.EnvironmentalCondition {
	if len(readings) == 0 {
		return nil
	}
	latest := readings[0]
	for _, reading := range readings[1:] {
		if reading.RecordedAt.After(latest.RecordedAt) {
			latest = reading
		}
	}
	return &latest
}

// Shape converts a stored row with loaded relations into the client-facing
// Sample. Absent relations become null, never a missing key.
func Shape(record models.PlantSample) Sample {
	shaped := Sample{
		SampleID:       record.SampleID,
		ScientificName: record.ScientificName,
		CommonName:     record.CommonName,
		Notes:          record.Notes,
		SampleDate:     record.SampleDate,
		LocationID:     record.LocationID,
		ResearcherID:   record.ResearcherID,
		Attributes:     record.Attributes,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}

	if record.SamplingLocation != nil {
		loc := locations.Shape(*record.SamplingLocation)
		shaped.SamplingLocation = &loc
	}
	if record.Researcher != nil {
		res := researchers.Shape(*record.Researcher)
		shaped.Researcher = &res
	}
	shaped.EnvironmentalCondition = LatestReading(record.EnvironmentalConditions)

	return shaped
}

// ShapeAll applies Shape to every record.
func ShapeAll(records []models.PlantSample) []Sample {
	shaped := make([]Sample, len(records))
	for i, record := range records {
		shaped[i] = Shape(record)
	}
	return shaped
}
