package dashboard

import (
	"context"
	"testing"
	"time"

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

func floatPtr(f float64) *float64 { return &f }

func seedSample(t *testing.T, gdb *gorm.DB, name string, opts ...func(*models.PlantSample)) *models.PlantSample {
	t.Helper()
	record := &models.PlantSample{
		SampleID:       uuid.New().String(),
		ScientificName: name,
		SampleDate:     time.Now(),
	}
	for _, opt := range opts {
		opt(record)
	}
	require.NoError(t, gdb.Create(record).Error)
	return record
}

func seedReading(t *testing.T, gdb *gorm.DB, sampleID string, recordedAt time.Time, opts ...func(*models.EnvironmentalCondition)) {
	t.Helper()
	reading := &models.EnvironmentalCondition{
		EnvironmentID: uuid.New().String(),
		SampleID:      sampleID,
		RecordedAt:    recordedAt,
	}
	for _, opt := range opts {
		opt(reading)
	}
	require.NoError(t, gdb.Create(reading).Error)
}

func TestStats_ThisMonthBoundary(t *testing.T) {
	gdb := newTestDB(t)
	store := NewStore(gdb)

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	seedSample(t, gdb, "Quercus ilex", func(s *models.PlantSample) {
		s.CreatedAt = monthStart
	})
	seedSample(t, gdb, "Pinus pinea", func(s *models.PlantSample) {
		s.CreatedAt = monthStart.Add(-time.Second)
	})

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalSamples)
	// The first instant of the month is inside the window, one second before
	// it is not.
	assert.EqualValues(t, 1, stats.SamplesThisMonth)
}

func TestStats_RecentSamplesOrderedByDate(t *testing.T) {
	gdb := newTestDB(t)
	store := NewStore(gdb)

	for i := 0; i < 7; i++ {
		day := time.Now().AddDate(0, 0, -i)
		seedSample(t, gdb, "Quercus ilex", func(s *models.PlantSample) {
			s.SampleDate = day
		})
	}
	newest := seedSample(t, gdb, "Pinus pinea", func(s *models.PlantSample) {
		s.SampleDate = time.Now().Add(time.Hour)
	})

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats.RecentSamples, 5)
	assert.Equal(t, newest.SampleID, stats.RecentSamples[0].SampleID)
}

func TestStats_SamplesByRegion(t *testing.T) {
	gdb := newTestDB(t)
	store := NewStore(gdb)

	loc := &models.SamplingLocation{
		LocationID: uuid.New().String(),
		Name:       strPtr("Monte Pellegrino"),
		Region:     strPtr("Sicilia"),
	}
	require.NoError(t, gdb.Create(loc).Error)

	seedSample(t, gdb, "Quercus ilex", func(s *models.PlantSample) {
		s.LocationID = &loc.LocationID
	})
	seedSample(t, gdb, "Chamaerops humilis", func(s *models.PlantSample) {
		s.LocationID = &loc.LocationID
	})
	seedSample(t, gdb, "Pinus pinea") // no location

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)

	buckets := map[string]int{}
	for _, bucket := range stats.SamplesByRegion {
		buckets[bucket.Region] = bucket.Count
	}
	assert.Equal(t, 2, buckets["Sicilia"])
	assert.Equal(t, 1, buckets["Unknown"])
}

func TestStats_MonthlyConditionsFold(t *testing.T) {
	gdb := newTestDB(t)
	store := NewStore(gdb)

	sample := seedSample(t, gdb, "Quercus ilex")
	month := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seedReading(t, gdb, sample.SampleID, month, func(r *models.EnvironmentalCondition) {
		r.Temperature = floatPtr(10)
	})
	seedReading(t, gdb, sample.SampleID, month.AddDate(0, 0, 2), func(r *models.EnvironmentalCondition) {
		r.Temperature = floatPtr(20)
	})
	seedReading(t, gdb, sample.SampleID, month.AddDate(0, 0, 4), func(r *models.EnvironmentalCondition) {
		r.Temperature = floatPtr(30)
	})

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats.MonthlyConditions, 1)
	require.NotNil(t, stats.MonthlyConditions[0].Temperature)
	// Pairwise fold: ((10+20)/2 + 30) / 2.
	assert.InDelta(t, 22.5, *stats.MonthlyConditions[0].Temperature, 1e-9)
	assert.Nil(t, stats.MonthlyConditions[0].Humidity)
}

func TestStats_MonthlyConditionsCappedAtFiveMonths(t *testing.T) {
	gdb := newTestDB(t)
	store := NewStore(gdb)

	sample := seedSample(t, gdb, "Quercus ilex")
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		seedReading(t, gdb, sample.SampleID, start.AddDate(0, i, 0), func(r *models.EnvironmentalCondition) {
			r.Temperature = floatPtr(15)
		})
	}

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Len(t, stats.MonthlyConditions, 5)
}

func TestAnalytics_LastWeekExcludesOlderSamples(t *testing.T) {
	gdb := newTestDB(t)
	store := NewStore(gdb)

	seedSample(t, gdb, "Quercus ilex", func(s *models.PlantSample) {
		s.SampleDate = time.Now()
	})
	seedSample(t, gdb, "Quercus ilex", func(s *models.PlantSample) {
		s.SampleDate = time.Now().AddDate(0, 0, -3)
	})
	seedSample(t, gdb, "Quercus ilex", func(s *models.PlantSample) {
		s.SampleDate = time.Now().AddDate(0, 0, -10)
	})

	analytics, err := store.Analytics(context.Background(), AnalyticsFilter{TimeRange: "last-week"})
	require.NoError(t, err)

	total := 0
	for _, bucket := range analytics.SamplesOverTime {
		total += bucket.Count
	}
	assert.Equal(t, 2, total)
}

func TestAnalytics_SpeciesAndLocationFilters(t *testing.T) {
	gdb := newTestDB(t)
	store := NewStore(gdb)

	loc := &models.SamplingLocation{LocationID: uuid.New().String(), Name: strPtr("Monte Pellegrino")}
	require.NoError(t, gdb.Create(loc).Error)

	seedSample(t, gdb, "Quercus ilex", func(s *models.PlantSample) {
		s.LocationID = &loc.LocationID
	})
	seedSample(t, gdb, "Quercus suber")
	seedSample(t, gdb, "Pinus pinea")

	analytics, err := store.Analytics(context.Background(), AnalyticsFilter{Species: "quercus"})
	require.NoError(t, err)
	total := 0
	for _, bucket := range analytics.SamplesOverTime {
		total += bucket.Count
	}
	assert.Equal(t, 2, total)

	analytics, err = store.Analytics(context.Background(), AnalyticsFilter{LocationID: loc.LocationID})
	require.NoError(t, err)
	total = 0
	for _, bucket := range analytics.SamplesOverTime {
		total += bucket.Count
	}
	assert.Equal(t, 1, total)
}

func TestAnalytics_SoilPHTrendWeekBuckets(t *testing.T) {
	gdb := newTestDB(t)
	store := NewStore(gdb)

	sample := seedSample(t, gdb, "Quercus ilex")
	first := time.Now().AddDate(0, 0, -20)
	seedReading(t, gdb, sample.SampleID, first, func(r *models.EnvironmentalCondition) {
		r.SoilPH = floatPtr(6.0)
	})
	seedReading(t, gdb, sample.SampleID, first.AddDate(0, 0, 1), func(r *models.EnvironmentalCondition) {
		r.SoilPH = floatPtr(7.0)
	})
	seedReading(t, gdb, sample.SampleID, first.AddDate(0, 0, 8), func(r *models.EnvironmentalCondition) {
		r.SoilPH = floatPtr(5.0)
	})

	analytics, err := store.Analytics(context.Background(), AnalyticsFilter{})
	require.NoError(t, err)
	require.Len(t, analytics.SoilPHTrends, 2)
	assert.Equal(t, "Week 1", analytics.SoilPHTrends[0].Week)
	assert.InDelta(t, 6.5, analytics.SoilPHTrends[0].SoilPH, 1e-9)
	assert.Equal(t, "Week 2", analytics.SoilPHTrends[1].Week)
	assert.InDelta(t, 5.0, analytics.SoilPHTrends[1].SoilPH, 1e-9)
}

func TestAnalytics_SummaryRequiresAllThreeMeasurements(t *testing.T) {
	gdb := newTestDB(t)
	store := NewStore(gdb)

	sample := seedSample(t, gdb, "Quercus ilex")
	now := time.Now()
	seedReading(t, gdb, sample.SampleID, now, func(r *models.EnvironmentalCondition) {
		r.Temperature = floatPtr(20)
		r.Humidity = floatPtr(60)
		r.SoilPH = floatPtr(6.5)
	})
	seedReading(t, gdb, sample.SampleID, now.Add(time.Hour), func(r *models.EnvironmentalCondition) {
		r.Temperature = floatPtr(25)
		r.Humidity = floatPtr(70)
		r.SoilPH = floatPtr(7.0)
	})
	// Incomplete reading stays out of the summary.
	seedReading(t, gdb, sample.SampleID, now.Add(2*time.Hour), func(r *models.EnvironmentalCondition) {
		r.Temperature = floatPtr(99)
	})

	analytics, err := store.Analytics(context.Background(), AnalyticsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, analytics.SummaryStats.ReadingCount)
	assert.InDelta(t, 22.5, analytics.SummaryStats.AvgTemperature, 1e-9)
	assert.InDelta(t, 65.0, analytics.SummaryStats.AvgHumidity, 1e-9)
	assert.InDelta(t, 6.8, analytics.SummaryStats.AvgSoilPH, 1e-9)
}

func TestAnalytics_ReadingsWindowOnRecordedAt(t *testing.T) {
	gdb := newTestDB(t)
	store := NewStore(gdb)

	// The sample itself is inside every window; only the readings' own
	// recorded_at decides whether they count.
	sample := seedSample(t, gdb, "Quercus ilex", func(s *models.PlantSample) {
		s.SampleDate = time.Now()
	})
	fullReading := func(r *models.EnvironmentalCondition) {
		r.Temperature = floatPtr(20)
		r.Humidity = floatPtr(60)
		r.SoilPH = floatPtr(6.5)
	}
	seedReading(t, gdb, sample.SampleID, time.Now(), fullReading)
	seedReading(t, gdb, sample.SampleID, time.Now().AddDate(0, 0, -10), fullReading)

	analytics, err := store.Analytics(context.Background(), AnalyticsFilter{TimeRange: "last-week"})
	require.NoError(t, err)
	assert.Equal(t, 1, analytics.SummaryStats.ReadingCount)
}

func TestAnalytics_EmptyDatabase(t *testing.T) {
	store := NewStore(newTestDB(t))

	analytics, err := store.Analytics(context.Background(), AnalyticsFilter{})
	require.NoError(t, err)
	assert.Empty(t, analytics.SamplesOverTime)
	assert.Empty(t, analytics.SoilPHTrends)
	assert.Empty(t, analytics.ClimateTrends)
	assert.Equal(t, 0, analytics.SummaryStats.ReadingCount)
}
