package analysis

import (
	"math"

	"github.com/pvsizer/pvsizer/pkg/types"
)

// hoursPerYear is the number of hourly readings a full year of data has.
const hoursPerYear = 365 * 24

// Tariff windows used to compare daytime and night consumption.
var (
	peakWindow    = map[int]bool{10: true, 11: true, 12: true, 13: true, 14: true, 15: true, 16: true, 17: true, 18: true, 19: true}
	offPeakWindow = map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 22: true, 23: true}
)

type bucket struct {
	label    string
	min, max float64
}

var buckets = []bucket{
	{"0-1 kWh", 0, 1},
	{"1-5 kWh", 1, 5},
	{"5-10 kWh", 5, 10},
	{"10-20 kWh", 10, 20},
	{"20-30 kWh", 20, 30},
	{"30+ kWh", 30, math.Inf(1)},
}

func loadProfile(readings []types.Reading, stats types.ConsumptionStats) types.LoadProfile {
	var lp types.LoadProfile

	var peakSum, offPeakSum float64
	var peakCount, offPeakCount int
	var sumSquares float64
	for _, r := range readings {
		switch {
		case peakWindow[r.Hour]:
			peakSum += r.EnergyKWH
			peakCount++
		case offPeakWindow[r.Hour]:
			offPeakSum += r.EnergyKWH
			offPeakCount++
		}
		diff := r.EnergyKWH - stats.AvgHourlyKWH
		sumSquares += diff * diff
	}

	if peakCount > 0 {
		lp.PeakAvgKWH = peakSum / float64(peakCount)
		lp.HasPeak = true
	}
	if offPeakCount > 0 {
		lp.OffPeakAvgKWH = offPeakSum / float64(offPeakCount)
		lp.HasOffPeak = true
	}
	if lp.HasPeak && lp.HasOffPeak && lp.OffPeakAvgKWH > 0 {
		lp.PeakToOffPeakRatio = lp.PeakAvgKWH / lp.OffPeakAvgKWH
		lp.HasPeakToOffPeak = true
	}

	if stats.MaxHourlyKWH > 0 {
		lp.LoadFactorPercent = stats.AvgHourlyKWH / stats.MaxHourlyKWH * 100
	}

	lp.StdDevKWH = math.Sqrt(sumSquares / float64(len(readings)))
	if stats.AvgHourlyKWH > 0 {
		lp.CoefficientOfVariationPercent = lp.StdDevKWH / stats.AvgHourlyKWH * 100
	}
	return lp
}

func distribution(readings []types.Reading) []types.DistributionBucket {
	out := make([]types.DistributionBucket, len(buckets))
	for i, b := range buckets {
		out[i] = types.DistributionBucket{Label: b.label, MinKWH: b.min}
		if !math.IsInf(b.max, 1) {
			out[i].MaxKWH = b.max
		}
	}
	for _, r := range readings {
		for i, b := range buckets {
			if r.EnergyKWH >= b.min && r.EnergyKWH < b.max {
				out[i].Count++
				break
			}
		}
	}
	for i := range out {
		out[i].Percent = float64(out[i].Count) / float64(len(readings)) * 100
	}
	return out
}

func dataRange(readings []types.Reading) types.DataRange {
	var dr types.DataRange
	days := make(map[string]struct{})
	months := make(map[int]struct{})
	years := make(map[int]struct{})
	for i, r := range readings {
		ts := r.Timestamp()
		if i == 0 || ts.Before(dr.First) {
			dr.First = ts
		}
		if i == 0 || ts.After(dr.Last) {
			dr.Last = ts
		}
		days[r.DayKey()] = struct{}{}
		months[r.Month] = struct{}{}
		years[r.Year] = struct{}{}
	}
	dr.UniqueDays = len(days)
	dr.UniqueMonths = len(months)
	dr.UniqueYears = len(years)
	dr.CoveragePercent = float64(len(readings)) / hoursPerYear * 100
	return dr
}
