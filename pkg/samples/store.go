// Package samples implements the plant-sample resource, including the batch
// create flow and the replace-as-a-unit handling of environmental readings.
package samples

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verdantlab/floralog/internal/models"
)

// Store provides CRUD operations for plant-sample records and their
// environmental readings.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ListFilter narrows a sample listing.
type ListFilter struct {
	ResearcherID string
	LocationID   string
	Limit        int
}

// preload loads the joined relations inlined into the client-facing shape.
func preload(query *gorm.DB) *gorm.DB {
	return query.
		Preload("SamplingLocation").
		Preload("Researcher").
		Preload("EnvironmentalConditions")
}

// List returns samples newest-first with their relations loaded.
func (s *Store) List(filter ListFilter) ([]models.PlantSample, error) {
	query := preload(s.db).Order("created_at DESC")
	if filter.ResearcherID != "" {
		query = query.Where("researcher_id = ?", filter.ResearcherID)
	}
	if filter.LocationID != "" {
		query = query.Where("location_id = ?", filter.LocationID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []models.PlantSample
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	return records, nil
}

// Get retrieves one sample with its relations. Returns nil, nil if no record
// exists.
func (s *Store) Get(id string) (*models.PlantSample, error) {
	var record models.PlantSample
	err := preload(s.db).Where("sample_id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get sample: %w", err)
	}
	return &record, nil
}

// CreateBatch inserts the given sample rows, each with its own copy of the
// shared environmental reading, inside one transaction. A non-nil location
// (the implicitly created site of a picked coordinate pair) is inserted in
// the same transaction, so a failed batch leaves no orphan location row.
// Either every row is written or none is.
func (s *Store) CreateBatch(records []*models.PlantSample, reading *models.EnvironmentalCondition, location *models.SamplingLocation) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if location != nil {
			if err := tx.Create(location).Error; err != nil {
				return fmt.Errorf("create location: %w", err)
			}
		}
		for _, record := range records {
			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("create sample: %w", err)
			}
			if reading != nil {
				row := *reading
				row.EnvironmentID = uuid.New().String()
				row.SampleID = record.SampleID
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("create environmental reading: %w", err)
				}
			}
		}
		return nil
	})
	return err
}

// Update replaces a sample's mutable fields and its environmental reading as
// a unit: every prior reading for the sample is removed, and the new reading
// (when non-nil) inserted, all inside one transaction.
// Returns gorm.ErrRecordNotFound if the sample row does not exist.
func (s *Store) Update(record *models.PlantSample, reading *models.EnvironmentalCondition) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		fields := map[string]any{
			"scientific_name": record.ScientificName,
			"common_name":     record.CommonName,
			"notes":           record.Notes,
			"location_id":     record.LocationID,
			"researcher_id":   record.ResearcherID,
			"attributes":      record.Attributes,
		}
		if !record.SampleDate.IsZero() {
			fields["sample_date"] = record.SampleDate
		}

		result := tx.Model(&models.PlantSample{}).
			Where("sample_id = ?", record.SampleID).
			Updates(fields)
		if result.Error != nil {
			return fmt.Errorf("update sample: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Where("sample_id = ?", record.SampleID).
			Delete(&models.EnvironmentalCondition{}).Error; err != nil {
			return fmt.Errorf("clear environmental readings: %w", err)
		}

		if reading != nil {
			row := *reading
			row.EnvironmentID = uuid.New().String()
			row.SampleID = record.SampleID
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("create environmental reading: %w", err)
			}
		}
		return nil
	})
}

// Delete removes a sample and its environmental readings. Returns the number
// of sample rows removed.
func (s *Store) Delete(id string) (int64, error) {
	var removed int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sample_id = ?", id).
			Delete(&models.EnvironmentalCondition{}).Error; err != nil {
			return fmt.Errorf("delete environmental readings: %w", err)
		}
		result := tx.Where("sample_id = ?", id).Delete(&models.PlantSample{})
		if result.Error != nil {
			return fmt.Errorf("delete sample: %w", result.Error)
		}
		removed = result.RowsAffected
		return nil
	})
	return removed, err
}
