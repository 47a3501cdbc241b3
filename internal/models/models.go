// Package models defines the persisted records for the field-sampling domain.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONMap is a custom GORM type for map[string]any stored as JSON text.
type JSONMap map[string]any

// Scan implements the sql.Scanner interface for JSONMap.
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONMap: %T", value)
	}
	return json.Unmarshal(bytes, m)
}

// Value implements the driver.Valuer interface for JSONMap.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Researcher is a registered field researcher. AuthID links the row to the
// external auth provider's identity; Contact is a free-form mapping with no
// schema enforcement beyond being a mapping.
type Researcher struct {
	ResearcherID string    `gorm:"primaryKey;column:researcher_id;type:varchar(36)" json:"researcher_id"`
	AuthID       *string   `gorm:"column:auth_id;index" json:"auth_id"`
	FullName     string    `gorm:"column:full_name;not null" json:"full_name"`
	Affiliation  *string   `gorm:"column:affiliation" json:"affiliation"`
	Contact      JSONMap   `gorm:"column:contact;type:text" json:"contact"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the GORM table name.
func (Researcher) TableName() string { return "researcher" }

// SamplingLocation is a geographic sampling site. Coordinates holds the
// textual point value written by the geometry package
// ("SRID=4326;POINT(lng lat)"), nullable when the site has no point yet.
type SamplingLocation struct {
	LocationID   string    `gorm:"primaryKey;column:location_id;type:varchar(36)" json:"location_id"`
	Name         *string   `gorm:"column:name" json:"name"`
	Description  *string   `gorm:"column:description" json:"description"`
	Region       *string   `gorm:"column:region;index" json:"region"`
	Municipality *string   `gorm:"column:municipality" json:"municipality"`
	Province     *string   `gorm:"column:province" json:"province"`
	Coordinates  *string   `gorm:"column:coordinates;type:text" json:"coordinates"`
	Metadata     JSONMap   `gorm:"column:metadata;type:text" json:"metadata"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the GORM table name.
func (SamplingLocation) TableName() string { return "sampling_location" }

// PlantSample is one recorded plant observation, optionally tied to a
// location and a researcher. The environmental relation is one-to-many in
// storage; by convention at most one reading is current per sample.
type PlantSample struct {
	SampleID       string    `gorm:"primaryKey;column:sample_id;type:varchar(36)" json:"sample_id"`
	ScientificName string    `gorm:"column:scientific_name;not null" json:"scientific_name"`
	CommonName     *string   `gorm:"column:common_name" json:"common_name"`
	Notes          *string   `gorm:"column:notes" json:"notes"`
	SampleDate     time.Time `gorm:"column:sample_date;index" json:"sample_date"`
	LocationID     *string   `gorm:"column:location_id;index" json:"location_id"`
	ResearcherID   *string   `gorm:"column:researcher_id;index" json:"researcher_id"`
	Attributes     JSONMap   `gorm:"column:attributes;type:text" json:"attributes"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	SamplingLocation        *SamplingLocation        `gorm:"foreignKey:LocationID;references:LocationID" json:"-"`
	Researcher              *Researcher              `gorm:"foreignKey:ResearcherID;references:ResearcherID" json:"-"`
	EnvironmentalConditions []EnvironmentalCondition `gorm:"foreignKey:SampleID;references:SampleID" json:"-"`
}

// TableName returns the GORM table name.
func (PlantSample) TableName() string { return "plant_sample" }

// EnvironmentalCondition is a snapshot of ambient conditions recorded with a
// sample. Rows are replaced as a unit whenever the owning sample is written.
type EnvironmentalCondition struct {
	EnvironmentID string    `gorm:"primaryKey;column:environment_id;type:varchar(36)" json:"environment_id"`
	SampleID      string    `gorm:"column:sample_id;not null;index" json:"sample_id"`
	Temperature   *float64  `gorm:"column:temperature" json:"temperature"`
	Humidity      *float64  `gorm:"column:humidity" json:"humidity"`
	SoilPH        *float64  `gorm:"column:soil_ph" json:"soil_ph"`
	Altitude      *float64  `gorm:"column:altitude" json:"altitude"`
	SoilType      *string   `gorm:"column:soil_type" json:"soil_type"`
	Extra         JSONMap   `gorm:"column:extra;type:text" json:"extra"`
	RecordedAt    time.Time `gorm:"column:recorded_at;autoCreateTime;index" json:"recorded_at"`
}

// TableName returns the GORM table name.
func (EnvironmentalCondition) TableName() string { return "environmental_condition" }

// All lists every record type, in migration order.
func All() []any {
	return []any{
		&Researcher{},
		&SamplingLocation{},
		&PlantSample{},
		&EnvironmentalCondition{},
	}
}
