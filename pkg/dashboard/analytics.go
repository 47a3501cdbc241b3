package dashboard

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/verdantlab/floralog/internal/models"
)

// maxAnalyticsReadings caps the environmental rows fed into the trend
// breakdowns.
const maxAnalyticsReadings = 500

// AnalyticsFilter narrows the reports-analytics aggregation.
type AnalyticsFilter struct {
	// TimeRange is one of last-week, last-month, last-year, or all. Anything
	// else behaves like all, which looks back two years rather than scanning
	// unbounded history.
	TimeRange  string
	LocationID string
	// Species is matched as a case-insensitive substring of the scientific
	// or common name.
	Species string
}

// since resolves the filter's lookback window against now.
func (f AnalyticsFilter) since(now time.Time) time.Time {
	switch f.TimeRange {
	case "last-week":
		return now.AddDate(0, 0, -7)
	case "last-month":
		return now.AddDate(0, -1, 0)
	case "last-year":
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(-2, 0, 0)
	}
}

// MonthCount is one month's sample tally in the time series.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// TrendPoint is one bucket of the soil-pH trend, keyed by week since the
// first matching reading.
type TrendPoint struct {
	Week   string  `json:"week"`
	SoilPH float64 `json:"soil_ph"`
}

// ClimatePoint is one month's temperature and humidity trend bucket.
type ClimatePoint struct {
	Month       string   `json:"month"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// Summary carries the overall averages across readings that have all three
// measurements, rounded to one decimal place.
type Summary struct {
	AvgTemperature float64 `json:"avg_temperature"`
	AvgHumidity    float64 `json:"avg_humidity"`
	AvgSoilPH      float64 `json:"avg_soil_ph"`
	ReadingCount   int     `json:"reading_count"`
}

// Analytics is the reports payload.
type Analytics struct {
	SamplesOverTime []MonthCount   `json:"samples_over_time"`
	SoilPHTrends    []TrendPoint   `json:"soil_ph_trends"`
	ClimateTrends   []ClimatePoint `json:"climate_trends"`
	SummaryStats    Summary        `json:"summary_stats"`
}

// Analytics aggregates samples and readings inside the filter's lookback
// window.
func (s *Store) Analytics(ctx context.Context, filter AnalyticsFilter) (*Analytics, error) {
	since := filter.since(time.Now())

	rows, err := s.matchingSamples(ctx, filter, since)
	if err != nil {
		return nil, err
	}
	readings, err := s.matchingReadings(ctx, filter, since)
	if err != nil {
		return nil, err
	}

	return &Analytics{
		SamplesOverTime: samplesOverTime(rows),
		SoilPHTrends:    soilPHTrends(readings),
		ClimateTrends:   climateTrends(readings),
		SummaryStats:    summarize(readings),
	}, nil
}

func (s *Store) matchingSamples(ctx context.Context, filter AnalyticsFilter, since time.Time) ([]models.PlantSample, error) {
	query := s.db.WithContext(ctx).
		Where("sample_date >= ?", since).
		Order("sample_date ASC")
	query = applySampleFilters(query, filter, "")

	var rows []models.PlantSample
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("analytics samples: %w", err)
	}
	return rows, nil
}

func (s *Store) matchingReadings(ctx context.Context, filter AnalyticsFilter, since time.Time) ([]models.EnvironmentalCondition, error) {
	// The readings window on their own recorded_at, not the owning sample's
	// date: the join exists only to apply the location and species filters.
	query := s.db.WithContext(ctx).
		Joins("JOIN plant_sample ON plant_sample.sample_id = environmental_condition.sample_id").
		Where("environmental_condition.recorded_at >= ?", since).
		Order("environmental_condition.recorded_at ASC").
		Limit(maxAnalyticsReadings)
	query = applySampleFilters(query, filter, "plant_sample.")

	var readings []models.EnvironmentalCondition
	if err := query.Find(&readings).Error; err != nil {
		return nil, fmt.Errorf("analytics readings: %w", err)
	}
	return readings, nil
}

// applySampleFilters adds the location and species predicates, with prefix
// qualifying the sample columns when the query runs through a join.
func applySampleFilters(query *gorm.DB, filter AnalyticsFilter, prefix string) *gorm.DB {
	if filter.LocationID != "" {
		query = query.Where(prefix+"location_id = ?", filter.LocationID)
	}
	if filter.Species != "" {
		pattern := "%" + strings.ToLower(filter.Species) + "%"
		query = query.Where(
			"LOWER("+prefix+"scientific_name) LIKE ? OR LOWER("+prefix+"common_name) LIKE ?",
			pattern, pattern,
		)
	}
	return query
}

// samplesOverTime buckets samples by calendar month of their sample date.
func samplesOverTime(rows []models.PlantSample) []MonthCount {
	counts := map[string]int{}
	var order []string
	for _, row := range rows {
		month := row.SampleDate.Format("2006-01")
		if _, seen := counts[month]; !seen {
			order = append(order, month)
		}
		counts[month]++
	}

	series := make([]MonthCount, 0, len(order))
	for _, month := range order {
		series = append(series, MonthCount{Month: month, Count: counts[month]})
	}
	return series
}

// soilPHTrends buckets readings by week since the first matching reading and
// folds each bucket into a running mean, keeping at most maxTrendBuckets
// points.
func soilPHTrends(readings []models.EnvironmentalCondition) []TrendPoint {
	var first *time.Time
	buckets := map[int]*float64{}
	var order []int
	for _, reading := range readings {
		if reading.SoilPH == nil {
			continue
		}
		if first == nil {
			t := reading.RecordedAt
			first = &t
		}
		week := int(reading.RecordedAt.Sub(*first).Hours() / (24 * 7))
		current, seen := buckets[week]
		if !seen {
			if len(order) == maxTrendBuckets {
				break
			}
			order = append(order, week)
		}
		buckets[week] = fold(current, reading.SoilPH)
	}

	points := make([]TrendPoint, 0, len(order))
	for _, week := range order {
		points = append(points, TrendPoint{
			Week:   fmt.Sprintf("Week %d", week+1),
			SoilPH: *buckets[week],
		})
	}
	return points
}

// climateTrends buckets readings by calendar month, folding temperature and
// humidity into running means, keeping at most maxTrendBuckets points.
func climateTrends(readings []models.EnvironmentalCondition) []ClimatePoint {
	buckets := map[string]*ClimatePoint{}
	var order []string
	for _, reading := range readings {
		if reading.Temperature == nil && reading.Humidity == nil {
			continue
		}
		month := reading.RecordedAt.Format("2006-01")
		bucket, seen := buckets[month]
		if !seen {
			if len(order) == maxTrendBuckets {
				break
			}
			bucket = &ClimatePoint{Month: month}
			buckets[month] = bucket
			order = append(order, month)
		}
		bucket.Temperature = fold(bucket.Temperature, reading.Temperature)
		bucket.Humidity = fold(bucket.Humidity, reading.Humidity)
	}

	points := make([]ClimatePoint, 0, len(order))
	for _, month := range order {
		points = append(points, *buckets[month])
	}
	return points
}

// summarize averages the readings that carry all three measurements.
func summarize(readings []models.EnvironmentalCondition) Summary {
	var summary Summary
	var temperature, humidity, soilPH float64
	for _, reading := range readings {
		if reading.Temperature == nil || reading.Humidity == nil || reading.SoilPH == nil {
			continue
		}
		temperature += *reading.Temperature
		humidity += *reading.Humidity
		soilPH += *reading.SoilPH
		summary.ReadingCount++
	}
	if summary.ReadingCount == 0 {
		return summary
	}
	n := float64(summary.ReadingCount)
	summary.AvgTemperature = round1(temperature / n)
	summary.AvgHumidity = round1(humidity / n)
	summary.AvgSoilPH = round1(soilPH / n)
	return summary
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
