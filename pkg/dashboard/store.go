// Package dashboard implements the aggregate read surface: dashboard stats
// and reports analytics over the sample, location, and researcher tables.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/verdantlab/floralog/internal/models"
	"github.com/verdantlab/floralog/pkg/samples"
)

// Store runs the aggregate queries behind the dashboard and reports
// endpoints.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// RegionCount is one bucket of samples grouped by their location's region.
type RegionCount struct {
	Region string `json:"region"`
	Count  int    `json:"count"`
}

// MonthlyConditions carries the per-month running averages of the
// environmental readings.
type MonthlyConditions struct {
	Month       string   `json:"month"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	SoilPH      *float64 `json:"soil_ph"`
}

// Stats is the dashboard payload: the headline counts, the five most recent
// samples with their relations inlined, and the two bucketed breakdowns.
type Stats struct {
	TotalSamples      int64               `json:"total_samples"`
	TotalLocations    int64               `json:"total_locations"`
	TotalResearchers  int64               `json:"total_researchers"`
	SamplesThisMonth  int64               `json:"samples_this_month"`
	RecentSamples     []samples.Sample    `json:"recent_samples"`
	SamplesByRegion   []RegionCount       `json:"samples_by_region"`
	MonthlyConditions []MonthlyConditions `json:"monthly_conditions"`
}

// maxTrendBuckets caps every bucketed breakdown.
const maxTrendBuckets = 5

// recentSampleCount is how many samples the dashboard lists.
const recentSampleCount = 5

// Stats computes the dashboard payload. The four counts run concurrently;
// the breakdowns bucket rows in process rather than in SQL so the grouping
// rules stay in one place.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	monthStart := startOfMonth(time.Now())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.PlantSample{}).
			Count(&stats.TotalSamples).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.SamplingLocation{}).
			Count(&stats.TotalLocations).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Researcher{}).
			Count(&stats.TotalResearchers).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.PlantSample{}).
			Where("created_at >= ?", monthStart).
			Count(&stats.SamplesThisMonth).Error
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}

	var recent []models.PlantSample
	err := s.db.WithContext(ctx).
		Preload("SamplingLocation").
		Preload("Researcher").
		Preload("EnvironmentalConditions").
		Order("sample_date DESC").
		Limit(recentSampleCount).
		Find(&recent).Error
	if err != nil {
		return nil, fmt.Errorf("recent samples: %w", err)
	}
	stats.RecentSamples = samples.ShapeAll(recent)

	byRegion, err := s.samplesByRegion(ctx)
	if err != nil {
		return nil, err
	}
	stats.SamplesByRegion = byRegion

	monthly, err := s.monthlyConditions(ctx)
	if err != nil {
		return nil, err
	}
	stats.MonthlyConditions = monthly

	return &stats, nil
}

// samplesByRegion buckets every sample by its location's region, with
// location-less samples collected under "Unknown".
func (s *Store) samplesByRegion(ctx context.Context) ([]RegionCount, error) {
	var rows []models.PlantSample
	if err := s.db.WithContext(ctx).Preload("SamplingLocation").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("samples by region: %w", err)
	}

	counts := map[string]int{}
	var order []string
	for _, row := range rows {
		region := "Unknown"
		if row.SamplingLocation != nil && row.SamplingLocation.Region != nil && *row.SamplingLocation.Region != "" {
			region = *row.SamplingLocation.Region
		}
		if _, seen := counts[region]; !seen {
			order = append(order, region)
		}
		counts[region]++
	}

	buckets := make([]RegionCount, 0, len(order))
	for _, region := range order {
		buckets = append(buckets, RegionCount{Region: region, Count: counts[region]})
	}
	return buckets, nil
}

// monthlyConditions buckets readings by calendar month and folds each field
// into a running mean, keeping at most maxTrendBuckets months.
func (s *Store) monthlyConditions(ctx context.Context) ([]MonthlyConditions, error) {
	var readings []models.EnvironmentalCondition
	err := s.db.WithContext(ctx).
		Order("recorded_at ASC").
		Find(&readings).Error
	if err != nil {
		return nil, fmt.Errorf("monthly conditions: %w", err)
	}

	buckets := map[string]*MonthlyConditions{}
	var order []string
	for _, reading := range readings {
		month := reading.RecordedAt.Format("2006-01")
		bucket, seen := buckets[month]
		if !seen {
			if len(order) == maxTrendBuckets {
				break
			}
			bucket = &MonthlyConditions{Month: month}
			buckets[month] = bucket
			order = append(order, month)
		}
		bucket.Temperature = fold(bucket.Temperature, reading.Temperature)
		bucket.Humidity = fold(bucket.Humidity, reading.Humidity)
		bucket.SoilPH = fold(bucket.SoilPH, reading.SoilPH)
	}

	result := make([]MonthlyConditions, 0, len(order))
	for _, month := range order {
		result = append(result, *buckets[month])
	}
	return result, nil
}

// fold merges a new value into a running mean: the first value seeds the
// mean, every later one is averaged pairwise against it. Kept for
// compatibility with the established trend payloads, not as a statistic to
// generalize.
func fold(current, value *float64) *float64 {
	if value == nil {
		return current
	}
	if current == nil {
		v := *value
		return &v
	}
	merged := (*current + *value) / 2
	return &merged
}

// startOfMonth returns the first instant of v's calendar month.
func startOfMonth(v time.Time) time.Time {
	return time.Date(v.Year(), v.Month(), 1, 0, 0, 0, 0, v.Location())
}
