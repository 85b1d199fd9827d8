package types

import (
	"sort"
	"time"
)

// HourStats aggregates every reading that shares an hour-of-day.
type HourStats struct {
	Avg   float64 `json:"avg"`
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
	Count int     `json:"count"`
}

// PeakHour is one entry of the peak-hour ranking.
type PeakHour struct {
	Hour   int     `json:"hour"`
	AvgKWH float64 `json:"avgKWH"`
}

// LoadProfile describes how flat or spiky the consumption is.
type LoadProfile struct {
	PeakAvgKWH         float64 `json:"peakAvgKWH"`
	HasPeak            bool    `json:"hasPeak"`
	OffPeakAvgKWH      float64 `json:"offPeakAvgKWH"`
	HasOffPeak         bool    `json:"hasOffPeak"`
	PeakToOffPeakRatio float64 `json:"peakToOffPeakRatio"`
	HasPeakToOffPeak   bool    `json:"hasPeakToOffPeak"`

	// LoadFactorPercent is the average hourly reading over the largest one.
	LoadFactorPercent float64 `json:"loadFactorPercent"`

	StdDevKWH                     float64 `json:"stdDevKWH"`
	CoefficientOfVariationPercent float64 `json:"coefficientOfVariationPercent"`
}

// DistributionBucket counts readings in [MinKWH, MaxKWH). A zero MaxKWH on
// the last bucket means unbounded.
type DistributionBucket struct {
	Label   string  `json:"label"`
	MinKWH  float64 `json:"minKWH"`
	MaxKWH  float64 `json:"maxKWH,omitempty"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// DataRange summarizes which calendar period the readings cover.
type DataRange struct {
	First           time.Time `json:"first"`
	Last            time.Time `json:"last"`
	UniqueDays      int       `json:"uniqueDays"`
	UniqueMonths    int       `json:"uniqueMonths"`
	UniqueYears     int       `json:"uniqueYears"`
	CoveragePercent float64   `json:"coveragePercent"`
}

// ConsumptionStats is derived from a set of readings and is recomputed
// whenever that set changes.
type ConsumptionStats struct {
	ReadingCount int     `json:"readingCount"`
	TotalKWH     float64 `json:"totalKWH"`
	AvgHourlyKWH float64 `json:"avgHourlyKWH"`
	MaxHourlyKWH float64 `json:"maxHourlyKWH"`
	MinHourlyKWH float64 `json:"minHourlyKWH"`

	// HourlyStats only has entries for hours with at least one reading.
	HourlyStats map[int]HourStats `json:"hourlyStats"`

	// DailyTotals is keyed by DayKey.
	DailyTotals map[string]float64 `json:"dailyTotals"`
	AvgDailyKWH float64            `json:"avgDailyKWH"`
	MaxDailyKWH float64            `json:"maxDailyKWH"`
	MinDailyKWH float64            `json:"minDailyKWH"`

	PeakHours    []PeakHour           `json:"peakHours"`
	LoadProfile  LoadProfile          `json:"loadProfile"`
	Distribution []DistributionBucket `json:"distribution"`
	DataRange    DataRange            `json:"dataRange"`
	Warnings     []string             `json:"warnings,omitempty"`
}

// Hours returns the hours present in HourlyStats in ascending order.
func (s ConsumptionStats) Hours() []int {
	hours := make([]int, 0, len(s.HourlyStats))
	for h := range s.HourlyStats {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours
}
