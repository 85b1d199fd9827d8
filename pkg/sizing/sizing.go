// Package sizing estimates a photovoltaic system from consumption statistics
// and a configuration.
package sizing

import (
	"fmt"
	"math"

	"github.com/pvsizer/pvsizer/pkg/types"
)

const daysPerYear = 365

// DegenerateResultWarning is added to a result whose payback is unbounded.
const DegenerateResultWarning = "annual savings are zero; the system never pays for itself"

var variantDescriptions = map[types.VariantName]string{
	types.VariantConservative: "Covers 80% of energy needs, lower cost, grid backup needed",
	types.VariantOptimal:      "Covers 100% of average needs, balanced approach",
	types.VariantAggressive:   "Oversized for future expansion and peak demands",
}

// Size computes the optimal system for stats under cfg and the three
// scaled variants. electricityPrice is per kWh in the configuration's
// currency. Statistics must cover at least one reading.
func Size(stats types.ConsumptionStats, cfg types.Configuration, electricityPrice float64) (types.SizingResult, error) {
	if err := checkStats(stats); err != nil {
		return types.SizingResult{}, err
	}
	if err := check(cfg, electricityPrice); err != nil {
		return types.SizingResult{}, err
	}

	daily := stats.AvgDailyKWH
	peak := stats.MaxHourlyKWH

	pv := (daily / cfg.Solar.PeakSunHours) / cfg.Solar.PanelEfficiency
	panels, err := ceil(pv * 1000 / cfg.Solar.PanelWattage)
	if err != nil {
		return types.SizingResult{}, err
	}
	battery := daily * cfg.Battery.AutonomyDays / cfg.Battery.BatteryEfficiency
	inverter := peak * cfg.Inverter.SafetyMargin

	costs := types.CostBreakdown{
		Panels:   float64(panels) * cfg.Solar.PanelWattage * cfg.Solar.PanelCostPerWatt,
		Battery:  battery * cfg.Battery.BatteryCostPerKWH,
		Inverter: inverter * cfg.Inverter.InverterCostPerKW,
	}
	equipment := costs.Panels + costs.Battery + costs.Inverter
	costs.Installation = equipment * (cfg.Installation.InstallationMultiplier - 1)
	total := equipment * cfg.Installation.InstallationMultiplier

	annualProduction := pv * cfg.Solar.PeakSunHours * daysPerYear
	var offset float64
	if daily > 0 {
		offset = math.Min(annualProduction/(daily*daysPerYear)*100, 100)
	}
	savings := daily * daysPerYear * electricityPrice * offset / 100

	res := types.SizingResult{
		DailyEnergyKWH:         daily,
		PeakPowerKW:            peak,
		PVArraySizeKW:          pv,
		NumberOfPanels:         panels,
		BatteryCapacityKWH:     battery,
		InverterSizeKW:         inverter,
		TotalSystemCost:        total,
		AnnualEnergyProduction: annualProduction,
		EnergyOffsetPercentage: offset,
		Payback:                types.BoundedPayback(total, savings),
		AnnualSavings:          savings,
		ElectricityCostPerKWH:  electricityPrice,
		Costs:                  costs,
		ROI:                    roi(total, savings, cfg.Installation.WarrantyYears),
		RoofAreaM2:             float64(panels) * cfg.Solar.PanelAreaM2,
		TotalWithVAT:           total * (1 + cfg.Financial.VATRate),
		ReferenceSystem:        ReferenceFor(pv),
	}
	if res.Payback.Unbounded {
		res.Warnings = append(res.Warnings, DegenerateResultWarning)
	}

	for _, v := range []struct {
		name types.VariantName
		m    types.VariantMultipliers
	}{
		{types.VariantConservative, cfg.SystemOptions.Conservative},
		{types.VariantOptimal, cfg.SystemOptions.Optimal},
		{types.VariantAggressive, cfg.SystemOptions.Aggressive},
	} {
		out, err := variant(v.name, v.m, res)
		if err != nil {
			return types.SizingResult{}, err
		}
		res.Variants = append(res.Variants, out)
	}
	return res, nil
}

func variant(name types.VariantName, m types.VariantMultipliers, base types.SizingResult) (types.Variant, error) {
	panels, err := ceil(float64(base.NumberOfPanels) * m.PV)
	if err != nil {
		return types.Variant{}, fmt.Errorf("%s variant: %w", name, err)
	}
	return types.Variant{
		Name:                   name,
		Description:            variantDescriptions[name],
		Multipliers:            m,
		PVArraySizeKW:          base.PVArraySizeKW * m.PV,
		NumberOfPanels:         panels,
		BatteryCapacityKWH:     base.BatteryCapacityKWH * m.Battery,
		TotalSystemCost:        base.TotalSystemCost * m.Cost,
		EnergyOffsetPercentage: math.Min(base.EnergyOffsetPercentage*m.Offset, 100),
	}, nil
}

func roi(total, savings, years float64) types.ROI {
	if total <= 0 {
		return types.ROI{Years: years, Unbounded: true}
	}
	return types.ROI{Years: years, Percent: (savings*years/total - 1) * 100}
}

// maxPanels keeps panel counts inside an int on every platform.
const maxPanels = math.MaxInt32

// ceil rounds up, ignoring the last few bits of floating point noise so that
// 10*1.3 is 13 panels rather than 14.
func ceil(v float64) (int, error) {
	if !finite(v) || v < 0 || v > maxPanels {
		return 0, fmt.Errorf("%w: %v panels", ErrOutOfRange, v)
	}
	return int(math.Ceil(math.Round(v*1e9) / 1e9)), nil
}

func checkStats(stats types.ConsumptionStats) error {
	if stats.ReadingCount <= 0 {
		return ErrEmptyStats
	}
	for _, f := range []struct {
		field string
		v     float64
	}{
		{"avgDailyKWH", stats.AvgDailyKWH},
		{"maxHourlyKWH", stats.MaxHourlyKWH},
	} {
		if !finite(f.v) || f.v < 0 {
			return &StatsError{Field: f.field, Value: f.v}
		}
	}
	return nil
}

func check(cfg types.Configuration, price float64) error {
	positive := []struct {
		field string
		v     float64
	}{
		{"solar.peakSunHours", cfg.Solar.PeakSunHours},
		{"solar.panelWattage", cfg.Solar.PanelWattage},
		{"solar.panelEfficiency", cfg.Solar.PanelEfficiency},
		{"battery.batteryEfficiency", cfg.Battery.BatteryEfficiency},
		{"inverter.safetyMargin", cfg.Inverter.SafetyMargin},
		{"installation.installationMultiplier", cfg.Installation.InstallationMultiplier},
		{"installation.warrantyYears", cfg.Installation.WarrantyYears},
	}
	for _, f := range positive {
		if !finite(f.v) || f.v <= 0 {
			return &ConfigError{Field: f.field, Value: f.v, Reason: "must be positive"}
		}
	}

	nonNegative := []struct {
		field string
		v     float64
	}{
		{"solar.panelCostPerWatt", cfg.Solar.PanelCostPerWatt},
		{"solar.panelAreaM2", cfg.Solar.PanelAreaM2},
		{"battery.autonomyDays", cfg.Battery.AutonomyDays},
		{"battery.batteryCostPerKwh", cfg.Battery.BatteryCostPerKWH},
		{"inverter.inverterCostPerKw", cfg.Inverter.InverterCostPerKW},
		{"financial.vatRate", cfg.Financial.VATRate},
		{"systemOptions.conservative.pvMultiplier", cfg.SystemOptions.Conservative.PV},
		{"systemOptions.conservative.batteryMultiplier", cfg.SystemOptions.Conservative.Battery},
		{"systemOptions.conservative.costMultiplier", cfg.SystemOptions.Conservative.Cost},
		{"systemOptions.conservative.offsetMultiplier", cfg.SystemOptions.Conservative.Offset},
		{"systemOptions.optimal.pvMultiplier", cfg.SystemOptions.Optimal.PV},
		{"systemOptions.optimal.batteryMultiplier", cfg.SystemOptions.Optimal.Battery},
		{"systemOptions.optimal.costMultiplier", cfg.SystemOptions.Optimal.Cost},
		{"systemOptions.optimal.offsetMultiplier", cfg.SystemOptions.Optimal.Offset},
		{"systemOptions.aggressive.pvMultiplier", cfg.SystemOptions.Aggressive.PV},
		{"systemOptions.aggressive.batteryMultiplier", cfg.SystemOptions.Aggressive.Battery},
		{"systemOptions.aggressive.costMultiplier", cfg.SystemOptions.Aggressive.Cost},
		{"systemOptions.aggressive.offsetMultiplier", cfg.SystemOptions.Aggressive.Offset},
		{"electricityPrice", price},
	}
	for _, f := range nonNegative {
		if !finite(f.v) || f.v < 0 {
			return &ConfigError{Field: f.field, Value: f.v, Reason: "must be a non-negative number"}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
