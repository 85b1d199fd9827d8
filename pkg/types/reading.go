package types

import (
	"fmt"
	"math"
	"time"
)

const (
	MinReadingYear = 2000
	MaxReadingYear = 2100
)

// Reading is a single hourly consumption observation. Year, Month, Day and
// Hour are authoritative; Timestamp is derived from them.
type Reading struct {
	EnergyKWH float64 `json:"energyKWH"`
	Hour      int     `json:"hour"`
	Day       int     `json:"day"`
	Month     int     `json:"month"`
	Year      int     `json:"year"`
}

// Timestamp returns the start of the reading's hour in UTC.
func (r Reading) Timestamp() time.Time {
	return time.Date(r.Year, time.Month(r.Month), r.Day, r.Hour, 0, 0, 0, time.UTC)
}

// DayKey returns the key the reading contributes to in daily totals.
func (r Reading) DayKey() string {
	return DayKey(r.Day, r.Month)
}

// Validate checks the reading's fields are within their allowed ranges.
func (r Reading) Validate() error {
	if math.IsNaN(r.EnergyKWH) || math.IsInf(r.EnergyKWH, 0) || r.EnergyKWH < 0 {
		return fmt.Errorf("energy must be a non-negative number: %v", r.EnergyKWH)
	}
	if r.Hour < 0 || r.Hour > 23 {
		return fmt.Errorf("hour out of range [0,23]: %d", r.Hour)
	}
	if r.Day < 1 || r.Day > 31 {
		return fmt.Errorf("day out of range [1,31]: %d", r.Day)
	}
	if r.Month < 1 || r.Month > 12 {
		return fmt.Errorf("month out of range [1,12]: %d", r.Month)
	}
	if r.Year < MinReadingYear || r.Year > MaxReadingYear {
		return fmt.Errorf("year out of range [%d,%d]: %d", MinReadingYear, MaxReadingYear, r.Year)
	}
	return nil
}

// DayKey formats the "day-month" key used by daily totals. It does not
// include the year, so the same calendar day in two years shares a key.
func DayKey(day, month int) string {
	return fmt.Sprintf("%d-%d", day, month)
}
