package sizing

import (
	"errors"
	"fmt"

	"github.com/pvsizer/pvsizer/pkg/types"
)

// ErrInvalidConfiguration is returned, wrapped in a ConfigError, when a
// configuration cannot produce a meaningful result.
var ErrInvalidConfiguration = types.ErrInvalidConfiguration

// ConfigError names the field that made a configuration unusable.
type ConfigError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s (got %v)", ErrInvalidConfiguration, e.Field, e.Reason, e.Value)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}

// ErrEmptyStats is returned when statistics cover no readings.
var ErrEmptyStats = errors.New("statistics cover no readings")

// ErrInvalidStats is returned, wrapped in a StatsError, when statistics hold
// values no meter can produce.
var ErrInvalidStats = errors.New("invalid consumption statistics")

// ErrOutOfRange is returned when a panel count does not fit an int.
var ErrOutOfRange = errors.New("result out of range")

// StatsError names the statistic that made a sizing impossible.
type StatsError struct {
	Field string
	Value float64
}

func (e *StatsError) Error() string {
	return fmt.Sprintf("%s: %s must be a non-negative number (got %v)", ErrInvalidStats, e.Field, e.Value)
}

func (e *StatsError) Unwrap() error {
	return ErrInvalidStats
}
