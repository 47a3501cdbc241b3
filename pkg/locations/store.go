// Package locations implements the sampling-location resource.
package locations

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/verdantlab/floralog/internal/models"
)

// Store provides CRUD operations for sampling-location records.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// List returns locations newest-first, optionally filtered by a region
// substring.
func (s *Store) List(region string) ([]models.SamplingLocation, error) {
	query := s.db.Order("created_at DESC")
	if region != "" {
		query = query.Where("LOWER(region) LIKE ?", "%"+strings.ToLower(region)+"%")
	}

	var records []models.SamplingLocation
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return records, nil
}

// Get retrieves a location by id. Returns nil, nil if no record exists.
func (s *Store) Get(id string) (*models.SamplingLocation, error) {
	var record models.SamplingLocation
	err := s.db.Where("location_id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &record, nil
}

// Create inserts a new location row.
func (s *Store) Create(record *models.SamplingLocation) error {
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of an existing location, coordinates
// included. Returns gorm.ErrRecordNotFound if the row does not exist.
func (s *Store) Update(record *models.SamplingLocation) error {
	result := s.db.Model(&models.SamplingLocation{}).
		Where("location_id = ?", record.LocationID).
		Updates(map[string]any{
			"name":         record.Name,
			"description":  record.Description,
			"region":       record.Region,
			"municipality": record.Municipality,
			"province":     record.Province,
			"coordinates":  record.Coordinates,
			"metadata":     record.Metadata,
		})
	if result.Error != nil {
		return fmt.Errorf("update location: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a location row. Returns the number of rows removed.
func (s *Store) Delete(id string) (int64, error) {
	result := s.db.Where("location_id = ?", id).Delete(&models.SamplingLocation{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete location: %w", result.Error)
	}
	return result.RowsAffected, nil
}
