// Package researchers implements the researcher resource: storage, shaping,
// and HTTP handlers.
package researchers

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/verdantlab/floralog/internal/models"
)

// Store provides CRUD operations for researcher records.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// List returns researchers newest-first. A non-empty search term filters by
// free text across name, affiliation, and the contact mapping (which covers
// the contact email).
func (s *Store) List(search string) ([]models.Researcher, error) {
	query := s.db.Order("created_at DESC")
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(full_name) LIKE ? OR LOWER(affiliation) LIKE ? OR LOWER(contact) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var records []models.Researcher
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list researchers: %w", err)
	}
	return records, nil
}

// Get retrieves a researcher by id. Returns nil, nil if no record exists.
func (s *Store) Get(id string) (*models.Researcher, error) {
	var record models.Researcher
	err := s.db.Where("researcher_id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get researcher: %w", err)
	}
	return &record, nil
}

// GetByAuthID retrieves the researcher linked to an external auth identity.
// Returns nil, nil if no record exists.
func (s *Store) GetByAuthID(authID string) (*models.Researcher, error) {
	var record models.Researcher
	err := s.db.Where("auth_id = ?", authID).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get researcher by auth id: %w", err)
	}
	return &record, nil
}

// Create inserts a new researcher row.
func (s *Store) Create(record *models.Researcher) error {
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("create researcher: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of an existing researcher.
// Returns gorm.ErrRecordNotFound if the row does not exist.
func (s *Store) Update(record *models.Researcher) error {
	result := s.db.Model(&models.Researcher{}).
		Where("researcher_id = ?", record.ResearcherID).
		Updates(map[string]any{
			"full_name":   record.FullName,
			"affiliation": record.Affiliation,
			"contact":     record.Contact,
		})
	if result.Error != nil {
		return fmt.Errorf("update researcher: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a researcher row. Returns the number of rows removed.
func (s *Store) Delete(id string) (int64, error) {
	result := s.db.Where("researcher_id = ?", id).Delete(&models.Researcher{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete researcher: %w", result.Error)
	}
	return result.RowsAffected, nil
}
