package report

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvsizer/pvsizer/pkg/analysis"
	"github.com/pvsizer/pvsizer/pkg/preset"
	"github.com/pvsizer/pvsizer/pkg/price"
	"github.com/pvsizer/pvsizer/pkg/sizing"
	"github.com/pvsizer/pvsizer/pkg/types"
)

func day(kwh float64) []types.Reading {
	readings := make([]types.Reading, 24)
	for h := range readings {
		readings[h] = types.Reading{EnergyKWH: kwh, Hour: h, Day: 1, Month: 1, Year: 2024}
	}
	return readings
}

func testPrices(t *testing.T, perKWH float64) *price.Map {
	t.Helper()
	m := price.NewMap()
	s, err := price.NewStatic(perKWH, "RON")
	require.NoError(t, err)
	m.Register(price.ProviderStatic, s)
	return m
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	b := NewBuilder(preset.NewRegistry(), testPrices(t, 0.8))

	t.Run("Readings", func(t *testing.T) {
		r, err := b.Build(ctx, Request{UserID: "u1", FileName: "a.csv", Readings: day(0.5)})
		require.NoError(t, err)
		_, err = uuid.Parse(r.ID)
		assert.NoError(t, err)
		assert.Equal(t, "u1", r.UserID)
		assert.InDelta(t, 12.0, r.Stats.TotalKWH, 1e-9)
		assert.InDelta(t, 12.0, r.Sizing.DailyEnergyKWH, 1e-9)
		assert.Equal(t, 0.8, r.Sizing.ElectricityCostPerKWH)
		assert.True(t, r.Validation.IsValid)
		assert.False(t, r.Created.IsZero())
	})

	t.Run("Stats", func(t *testing.T) {
		stats, err := analysis.Aggregate(day(1))
		require.NoError(t, err)
		r, err := b.Build(ctx, Request{Stats: &stats})
		require.NoError(t, err)
		assert.Equal(t, stats, r.Stats)
	})

	t.Run("No Data", func(t *testing.T) {
		_, err := b.Build(ctx, Request{})
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("Price Precedence", func(t *testing.T) {
		r, err := b.Build(ctx, Request{Readings: day(1), Configuration: types.SavedConfiguration{
			Presets: []string{"ev-ready"},
		}})
		require.NoError(t, err)
		assert.Equal(t, 0.90, r.Sizing.ElectricityCostPerKWH)

		r, err = b.Build(ctx, Request{Readings: day(1), Configuration: types.SavedConfiguration{
			Presets:                []string{"ev-ready"},
			ElectricityPricePerKWH: types.Float(1.2),
		}})
		require.NoError(t, err)
		assert.Equal(t, 1.2, r.Sizing.ElectricityCostPerKWH)
	})

	t.Run("Zero Price", func(t *testing.T) {
		r, err := b.Build(ctx, Request{Readings: day(1), Configuration: types.SavedConfiguration{
			ElectricityPricePerKWH: types.Float(0),
		}})
		require.NoError(t, err)
		assert.True(t, r.Sizing.Payback.Unbounded)
		assert.Contains(t, r.Sizing.Warnings, sizing.DegenerateResultWarning)
	})

	t.Run("Invalid Configuration", func(t *testing.T) {
		_, err := b.Build(ctx, Request{Readings: day(1), Configuration: types.SavedConfiguration{
			Overrides: types.ConfigurationOverrides{
				Solar: &types.SolarOverrides{PeakSunHours: types.Float(0)},
			},
		}})
		assert.ErrorIs(t, err, sizing.ErrInvalidConfiguration)
	})

	t.Run("Unknown Preset", func(t *testing.T) {
		_, err := b.Build(ctx, Request{Readings: day(1), Configuration: types.SavedConfiguration{
			Presets: []string{"nope"},
		}})
		assert.ErrorIs(t, err, preset.ErrUnknownPreset)
	})

	t.Run("No Provider", func(t *testing.T) {
		_, err := NewBuilder(preset.NewRegistry(), nil).Build(ctx, Request{Readings: day(1)})
		assert.ErrorIs(t, err, price.ErrUnknownProvider)
	})
}
