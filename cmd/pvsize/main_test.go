package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvsizer/pvsizer/pkg/preset"
	"github.com/pvsizer/pvsizer/pkg/price"
	"github.com/pvsizer/pvsizer/pkg/report"
	"github.com/pvsizer/pvsizer/pkg/types"
)

func fixedReport() types.Report {
	return types.Report{
		Stats: types.ConsumptionStats{
			ReadingCount: 48,
			HourlyStats: map[int]types.HourStats{
				20: {Avg: 1.5, Max: 2, Min: 1, Count: 2},
				8:  {Avg: 0.25, Max: 0.5, Min: 0, Count: 2},
			},
		},
		Sizing: types.SizingResult{
			DailyEnergyKWH:         10,
			PeakPowerKW:            2,
			PVArraySizeKW:          2.61,
			NumberOfPanels:         7,
			RoofAreaM2:             14,
			BatteryCapacityKWH:     22.22,
			InverterSizeKW:         2.4,
			TotalSystemCost:        74966,
			TotalWithVAT:           89210,
			EnergyOffsetPercentage: 100,
			AnnualSavings:          2920,
			ElectricityCostPerKWH:  0.8,
			Payback:                types.Payback{Years: 25.67},
			Variants: []types.Variant{
				{Name: types.VariantConservative, PVArraySizeKW: 2.09, NumberOfPanels: 6, BatteryCapacityKWH: 17.78, TotalSystemCost: 59973, EnergyOffsetPercentage: 80},
			},
			Warnings: []string{"annual savings are low"},
		},
		Validation: types.Validation{IsValid: false, Warnings: []string{"Panel wattage outside typical range (250-600W)"}},
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeText(&buf, fixedReport()))
	out := buf.String()

	for _, want := range []string{
		"Readings",
		"48\n",
		"2.61 kW (7 panels, 14.0 m2)\n",
		"22.22 kWh\n",
		"74966 (89210 with VAT)\n",
		"100.0%\n",
		"2920 at 0.80/kWh\n",
		"25.7 years\n",
		"avg 0.25 kWh, max 0.50 kWh\n",
		"avg 1.50 kWh, max 2.00 kWh\n",
		"2.09 kW, 6 panels, 17.78 kWh battery, cost 59973, offset 80.0%\n",
		"Panel wattage outside typical range (250-600W)\n",
		"annual savings are low\n",
	} {
		assert.Contains(t, out, want)
	}

	// hours are listed in order
	assert.Less(t, strings.Index(out, "08:00"), strings.Index(out, "20:00"))
	assert.True(t, strings.HasPrefix(out, "Readings"))
}

func TestWriteTextUnbounded(t *testing.T) {
	rep := fixedReport()
	rep.Sizing.Payback = types.Payback{Unbounded: true}
	var buf bytes.Buffer
	require.NoError(t, writeText(&buf, rep))
	assert.Contains(t, buf.String(), types.PaybackUnbounded+"\n")
}

func testBuilder(t *testing.T) *report.Builder {
	t.Helper()
	m := price.NewMap()
	s, err := price.NewStatic(0.8, "RON")
	require.NoError(t, err)
	m.Register(price.ProviderStatic, s)
	return report.NewBuilder(preset.NewRegistry(), m)
}

func writeCSV(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("energie (kwh),ora,zi,luna,an\n")
	for h := 0; h < 24; h++ {
		fmt.Fprintf(&b, "0.5,%d,1,6,2024\n", h)
	}
	path := filepath.Join(t.TempDir(), "consum.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	b := testBuilder(t)
	path := writeCSV(t)

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		err := run(ctx, b, options{file: path, presets: "premium", price: "1", format: "json"}, &buf)
		require.NoError(t, err)
		var rep types.Report
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rep))
		assert.Equal(t, 24, rep.Stats.ReadingCount)
		assert.Equal(t, []string{"premium"}, rep.Configuration.Presets)
		assert.Equal(t, 1.0, rep.Sizing.ElectricityCostPerKWH)
		assert.InDelta(t, 12.0/4.5/0.90, rep.Sizing.PVArraySizeKW, 1e-9)
	})

	t.Run("Text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, run(ctx, b, options{file: path, format: "text"}, &buf))
		assert.Contains(t, buf.String(), "at 0.80/kWh")
	})

	t.Run("Unknown Format", func(t *testing.T) {
		err := run(ctx, b, options{file: path, format: "yaml"}, &bytes.Buffer{})
		assert.ErrorContains(t, err, "unknown format")
	})

	t.Run("Invalid Price", func(t *testing.T) {
		err := run(ctx, b, options{file: path, price: "cheap", format: "text"}, &bytes.Buffer{})
		assert.ErrorContains(t, err, "invalid price")
	})

	t.Run("Missing File", func(t *testing.T) {
		err := run(ctx, b, options{file: filepath.Join(t.TempDir(), "nope.csv"), format: "text"}, &bytes.Buffer{})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Unknown Preset", func(t *testing.T) {
		err := run(ctx, b, options{file: path, presets: "nope", format: "text"}, &bytes.Buffer{})
		assert.ErrorIs(t, err, preset.ErrUnknownPreset)
	})
}

func TestWritePresets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePresets(&buf, preset.NewRegistry()))
	assert.True(t, strings.HasPrefix(buf.String(), "budget"))
}
