// Package analysis derives consumption statistics from hourly readings.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/pvsizer/pvsizer/pkg/types"
)

// ErrEmptyInput is returned when there are no readings to aggregate.
var ErrEmptyInput = errors.New("no readings to aggregate")

// ErrInvalidReading is returned when a reading is outside its allowed ranges.
var ErrInvalidReading = errors.New("invalid reading")

// PeakHourCount is how many hours the peak-hour ranking keeps.
const PeakHourCount = 5

// Aggregate computes consumption statistics over readings. It does not
// modify readings.
func Aggregate(readings []types.Reading) (types.ConsumptionStats, error) {
	if len(readings) == 0 {
		return types.ConsumptionStats{}, ErrEmptyInput
	}

	stats := types.ConsumptionStats{
		ReadingCount: len(readings),
		MaxHourlyKWH: math.Inf(-1),
		MinHourlyKWH: math.Inf(1),
		HourlyStats:  make(map[int]types.HourStats),
		DailyTotals:  make(map[string]float64),
	}

	for i, r := range readings {
		if err := r.Validate(); err != nil {
			return types.ConsumptionStats{}, fmt.Errorf("%w %d: %w", ErrInvalidReading, i, err)
		}
	}

	var hourSums [24]float64
	for _, r := range readings {
		stats.TotalKWH += r.EnergyKWH
		stats.MaxHourlyKWH = math.Max(stats.MaxHourlyKWH, r.EnergyKWH)
		stats.MinHourlyKWH = math.Min(stats.MinHourlyKWH, r.EnergyKWH)

		hs, ok := stats.HourlyStats[r.Hour]
		if !ok {
			hs = types.HourStats{Max: r.EnergyKWH, Min: r.EnergyKWH}
		}
		hs.Count++
		hs.Max = math.Max(hs.Max, r.EnergyKWH)
		hs.Min = math.Min(hs.Min, r.EnergyKWH)
		hourSums[r.Hour] += r.EnergyKWH
		stats.HourlyStats[r.Hour] = hs

		stats.DailyTotals[r.DayKey()] += r.EnergyKWH
	}
	stats.AvgHourlyKWH = stats.TotalKWH / float64(len(readings))

	for h, hs := range stats.HourlyStats {
		hs.Avg = hourSums[h] / float64(hs.Count)
		stats.HourlyStats[h] = hs
	}

	stats.MaxDailyKWH = math.Inf(-1)
	stats.MinDailyKWH = math.Inf(1)
	var dailySum float64
	for _, total := range stats.DailyTotals {
		dailySum += total
		stats.MaxDailyKWH = math.Max(stats.MaxDailyKWH, total)
		stats.MinDailyKWH = math.Min(stats.MinDailyKWH, total)
	}
	stats.AvgDailyKWH = dailySum / float64(len(stats.DailyTotals))

	stats.PeakHours = peakHours(stats.HourlyStats, PeakHourCount)
	stats.LoadProfile = loadProfile(readings, stats)
	stats.Distribution = distribution(readings)
	stats.DataRange = dataRange(readings)

	if stats.DataRange.UniqueYears > 1 {
		stats.Warnings = append(stats.Warnings, "readings span more than one year; daily totals combine the same day and month across years")
	}

	return stats, nil
}

// peakHours ranks hours by average consumption, highest first. Hours with
// equal averages are ordered by hour ascending.
func peakHours(hourly map[int]types.HourStats, n int) []types.PeakHour {
	peaks := make([]types.PeakHour, 0, len(hourly))
	for h, hs := range hourly {
		peaks = append(peaks, types.PeakHour{Hour: h, AvgKWH: hs.Avg})
	}
	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].AvgKWH != peaks[j].AvgKWH {
			return peaks[i].AvgKWH > peaks[j].AvgKWH
		}
		return peaks[i].Hour < peaks[j].Hour
	})
	if len(peaks) > n {
		peaks = peaks[:n]
	}
	return peaks
}
