package sizing

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvsizer/pvsizer/pkg/types"
)

func statsFor(daily, peak float64) types.ConsumptionStats {
	return types.ConsumptionStats{ReadingCount: 24, AvgDailyKWH: daily, MaxHourlyKWH: peak}
}

func withCount(s types.ConsumptionStats, n int) types.ConsumptionStats {
	s.ReadingCount = n
	return s
}

func TestSize(t *testing.T) {
	t.Run("PV Array Size", func(t *testing.T) {
		cfg := types.DefaultConfiguration()
		cfg.Solar.PeakSunHours = 5
		cfg.Solar.PanelEfficiency = 0.85

		res, err := Size(statsFor(10, 2), cfg, 0.8)
		require.NoError(t, err)
		assert.InDelta(t, (10.0/5)/0.85, res.PVArraySizeKW, 1e-9)
		assert.InDelta(t, 10.0, res.DailyEnergyKWH, 1e-9)
		assert.InDelta(t, 2.0, res.PeakPowerKW, 1e-9)
	})

	t.Run("Panel Count", func(t *testing.T) {
		cfg := types.DefaultConfiguration()
		cfg.Solar.PanelWattage = 415
		// 8.9775 kWh/day over 4.5h at 0.85 is a 2.347 kW array
		res, err := Size(statsFor(8.9775, 1), cfg, 0.8)
		require.NoError(t, err)
		assert.Equal(t, 6, res.NumberOfPanels)
		assert.InDelta(t, 12.0, res.RoofAreaM2, 1e-9)
	})

	t.Run("Defaults", func(t *testing.T) {
		cfg := types.DefaultConfiguration()
		res, err := Size(statsFor(10, 3), cfg, 0.8)
		require.NoError(t, err)

		pv := (10.0 / 4.5) / 0.85
		panels := int(math.Ceil(pv * 1000 / 415))
		battery := 10.0 * 2 / 0.9
		inverter := 3 * 1.2
		equipment := float64(panels)*415*3.98 + battery*1988 + inverter*1491

		assert.InDelta(t, pv, res.PVArraySizeKW, 1e-9)
		assert.Equal(t, panels, res.NumberOfPanels)
		assert.InDelta(t, battery, res.BatteryCapacityKWH, 1e-9)
		assert.InDelta(t, inverter, res.InverterSizeKW, 1e-9)
		assert.InDelta(t, equipment*1.3, res.TotalSystemCost, 1e-6)
		assert.InDelta(t, equipment*0.3, res.Costs.Installation, 1e-6)
		assert.InDelta(t, res.TotalSystemCost,
			res.Costs.Panels+res.Costs.Battery+res.Costs.Inverter+res.Costs.Installation, 1e-6)
		assert.InDelta(t, res.TotalSystemCost*1.19, res.TotalWithVAT, 1e-6)

		// production covers demand at 0.85 efficiency, so the offset is capped
		assert.InDelta(t, 100.0, res.EnergyOffsetPercentage, 1e-9)
		assert.InDelta(t, 10*365*0.8, res.AnnualSavings, 1e-9)
		assert.False(t, res.Payback.Unbounded)
		assert.InDelta(t, res.TotalSystemCost/res.AnnualSavings, res.Payback.Years, 1e-9)
		assert.InDelta(t, 25.0, res.ROI.Years, 1e-9)
		assert.InDelta(t, (res.AnnualSavings*25/res.TotalSystemCost-1)*100, res.ROI.Percent, 1e-9)
		assert.Empty(t, res.Warnings)

		require.NotNil(t, res.ReferenceSystem)
		assert.Equal(t, 3.0, res.ReferenceSystem.KW)
	})

	t.Run("Zero Savings", func(t *testing.T) {
		res, err := Size(statsFor(10, 2), types.DefaultConfiguration(), 0)
		require.NoError(t, err)
		assert.True(t, res.Payback.Unbounded)
		assert.Contains(t, res.Warnings, DegenerateResultWarning)

		b, err := json.Marshal(res)
		require.NoError(t, err)
		assert.Contains(t, string(b), `"paybackYears":"unbounded"`)
	})

	t.Run("Zero Consumption", func(t *testing.T) {
		res, err := Size(statsFor(0, 0), types.DefaultConfiguration(), 0.8)
		require.NoError(t, err)
		assert.Zero(t, res.EnergyOffsetPercentage)
		assert.Zero(t, res.NumberOfPanels)
		assert.True(t, res.Payback.Unbounded)
		assert.True(t, res.ROI.Unbounded)
		for _, v := range res.Variants {
			assert.False(t, math.IsNaN(v.EnergyOffsetPercentage))
		}
	})

	t.Run("Offset Capped", func(t *testing.T) {
		cfg := types.DefaultConfiguration()
		cfg.Solar.PanelEfficiency = 0.5
		// production is twice the demand
		res, err := Size(statsFor(20, 4), cfg, 0.8)
		require.NoError(t, err)
		assert.Equal(t, 100.0, res.EnergyOffsetPercentage)
		assert.InDelta(t, 20*365*0.8, res.AnnualSavings, 1e-9)
		for _, v := range res.Variants {
			assert.LessOrEqual(t, v.EnergyOffsetPercentage, 100.0, v.Name)
		}
	})

	t.Run("Variant Ordering", func(t *testing.T) {
		res, err := Size(statsFor(15, 4), types.DefaultConfiguration(), 0.8)
		require.NoError(t, err)
		require.Len(t, res.Variants, 3)

		cons, ok := res.Variant(types.VariantConservative)
		require.True(t, ok)
		opt, ok := res.Variant(types.VariantOptimal)
		require.True(t, ok)
		agg, ok := res.Variant(types.VariantAggressive)
		require.True(t, ok)

		assert.Less(t, cons.PVArraySizeKW, opt.PVArraySizeKW)
		assert.Less(t, opt.PVArraySizeKW, agg.PVArraySizeKW)
		assert.Less(t, cons.TotalSystemCost, opt.TotalSystemCost)
		assert.Less(t, opt.TotalSystemCost, agg.TotalSystemCost)
		assert.LessOrEqual(t, cons.NumberOfPanels, opt.NumberOfPanels)
		assert.LessOrEqual(t, opt.NumberOfPanels, agg.NumberOfPanels)

		assert.Equal(t, res.NumberOfPanels, opt.NumberOfPanels)
		assert.InDelta(t, res.TotalSystemCost, opt.TotalSystemCost, 1e-9)
		assert.InDelta(t, res.EnergyOffsetPercentage*0.8, cons.EnergyOffsetPercentage, 1e-9)
		assert.NotEmpty(t, cons.Description)
	})

	t.Run("Variant Panels Round Up", func(t *testing.T) {
		cfg := types.DefaultConfiguration()
		cfg.Solar.PanelWattage = 1000
		cfg.Solar.PeakSunHours = 1
		cfg.Solar.PanelEfficiency = 1
		// 10 kW array is exactly 10 panels; 10*1.3 must not become 14
		res, err := Size(statsFor(10, 1), cfg, 0.8)
		require.NoError(t, err)
		require.Equal(t, 10, res.NumberOfPanels)
		agg, _ := res.Variant(types.VariantAggressive)
		assert.Equal(t, 13, agg.NumberOfPanels)
		cons, _ := res.Variant(types.VariantConservative)
		assert.Equal(t, 8, cons.NumberOfPanels)
	})

	t.Run("Monotonic In Sun Hours", func(t *testing.T) {
		cfg := types.DefaultConfiguration()
		prev := math.Inf(1)
		for _, h := range []float64{2, 3, 4, 5, 6} {
			cfg.Solar.PeakSunHours = h
			res, err := Size(statsFor(12, 3), cfg, 0.8)
			require.NoError(t, err)
			assert.Less(t, res.PVArraySizeKW, prev, "%v hours", h)
			prev = res.PVArraySizeKW
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		cfg := types.DefaultConfiguration()
		first, err := Size(statsFor(13.7, 2.9), cfg, 0.75)
		require.NoError(t, err)
		second, err := Size(statsFor(13.7, 2.9), cfg, 0.75)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("Invalid Stats", func(t *testing.T) {
		tests := []struct {
			name  string
			stats types.ConsumptionStats
			want  error
			field string
		}{
			{"no readings", withCount(statsFor(10, 2), 0), ErrEmptyStats, ""},
			{"negative readings", withCount(statsFor(10, 2), -1), ErrEmptyStats, ""},
			{"negative daily", statsFor(-10, 2), ErrInvalidStats, "avgDailyKWH"},
			{"negative peak", statsFor(10, -2), ErrInvalidStats, "maxHourlyKWH"},
			{"nan daily", statsFor(math.NaN(), 2), ErrInvalidStats, "avgDailyKWH"},
			{"infinite peak", statsFor(10, math.Inf(1)), ErrInvalidStats, "maxHourlyKWH"},
			{"too many panels", statsFor(1e300, 1e300), ErrOutOfRange, ""},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				res, err := Size(tt.stats, types.DefaultConfiguration(), 0.8)
				require.ErrorIs(t, err, tt.want)
				assert.Zero(t, res.NumberOfPanels)
				if tt.field != "" {
					var serr *StatsError
					require.ErrorAs(t, err, &serr)
					assert.Equal(t, tt.field, serr.Field)
				}
			})
		}
	})

	t.Run("Variant Out Of Range", func(t *testing.T) {
		cfg := types.DefaultConfiguration()
		cfg.SystemOptions.Aggressive.PV = 1e12
		_, err := Size(statsFor(10, 2), cfg, 0.8)
		assert.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("Reference Beyond Table", func(t *testing.T) {
		res, err := Size(statsFor(200, 20), types.DefaultConfiguration(), 0.8)
		require.NoError(t, err)
		assert.Nil(t, res.ReferenceSystem)
	})

	t.Run("Invalid Configuration", func(t *testing.T) {
		tests := []struct {
			name  string
			field string
			mod   func(*types.Configuration)
			price float64
		}{
			{"zero sun hours", "solar.peakSunHours", func(c *types.Configuration) { c.Solar.PeakSunHours = 0 }, 0.8},
			{"negative wattage", "solar.panelWattage", func(c *types.Configuration) { c.Solar.PanelWattage = -1 }, 0.8},
			{"nan efficiency", "solar.panelEfficiency", func(c *types.Configuration) { c.Solar.PanelEfficiency = math.NaN() }, 0.8},
			{"zero battery efficiency", "battery.batteryEfficiency", func(c *types.Configuration) { c.Battery.BatteryEfficiency = 0 }, 0.8},
			{"negative autonomy", "battery.autonomyDays", func(c *types.Configuration) { c.Battery.AutonomyDays = -2 }, 0.8},
			{"infinite cost", "inverter.inverterCostPerKw", func(c *types.Configuration) { c.Inverter.InverterCostPerKW = math.Inf(1) }, 0.8},
			{"negative multiplier", "systemOptions.aggressive.pvMultiplier", func(c *types.Configuration) { c.SystemOptions.Aggressive.PV = -1 }, 0.8},
			{"negative price", "electricityPrice", func(*types.Configuration) {}, -0.1},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := types.DefaultConfiguration()
				tt.mod(&cfg)
				_, err := Size(statsFor(10, 2), cfg, tt.price)
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfiguration)
				var cerr *ConfigError
				require.ErrorAs(t, err, &cerr)
				assert.Equal(t, tt.field, cerr.Field)
			})
		}
	})
}

func TestReferenceFor(t *testing.T) {
	assert.Equal(t, 3.0, ReferenceFor(0.5).KW)
	assert.Equal(t, 5.0, ReferenceFor(5).KW)
	assert.Equal(t, 6.0, ReferenceFor(5.01).KW)
	assert.Equal(t, 20.0, ReferenceFor(20).KW)
	assert.Nil(t, ReferenceFor(20.1))
}

func TestValidate(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		v := Validate(types.DefaultConfiguration())
		assert.True(t, v.IsValid)
		assert.Empty(t, v.Warnings)
	})

	t.Run("Out Of Range", func(t *testing.T) {
		cfg := types.DefaultConfiguration()
		cfg.Solar.PanelWattage = 700
		cfg.Battery.BatteryEfficiency = 0.5
		v := Validate(cfg)
		assert.False(t, v.IsValid)
		assert.Equal(t, []string{
			"Panel wattage outside typical range (250-600W)",
			"Battery efficiency outside typical range (70-98%)",
		}, v.Warnings)
	})

	t.Run("Advisory Only", func(t *testing.T) {
		cfg := types.DefaultConfiguration()
		cfg.Inverter.InverterEfficiency = 0.5
		assert.False(t, Validate(cfg).IsValid)
		_, err := Size(statsFor(10, 2), cfg, 0.8)
		assert.NoError(t, err)
	})
}
