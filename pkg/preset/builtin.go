package preset

import "github.com/pvsizer/pvsizer/pkg/types"

var (
	num = types.Float
	str = types.String
)

func variant(pv, battery, cost, offset float64) *types.VariantOverrides {
	return &types.VariantOverrides{PV: num(pv), Battery: num(battery), Cost: num(cost), Offset: num(offset)}
}

var builtins = []Preset{
	{
		Name:        "budget",
		Description: "Affordable panels, minimal storage and lower installation costs",
		Overrides: types.ConfigurationOverrides{
			Solar:        &types.SolarOverrides{PanelWattage: num(380), PanelCostPerWatt: num(3.50)},
			Battery:      &types.BatteryOverrides{AutonomyDays: num(1), BatteryCostPerKWH: num(1800)},
			Inverter:     &types.InverterOverrides{InverterCostPerKW: num(1300)},
			Installation: &types.InstallationOverrides{InstallationMultiplier: num(1.25)},
		},
	},
	{
		Name:        "premium",
		Description: "High-efficiency panels, premium batteries and extended autonomy",
		Overrides: types.ConfigurationOverrides{
			Solar:        &types.SolarOverrides{PanelWattage: num(550), PanelEfficiency: num(0.90), PanelCostPerWatt: num(4.50)},
			Battery:      &types.BatteryOverrides{AutonomyDays: num(3), BatteryEfficiency: num(0.95), BatteryCostPerKWH: num(2200)},
			Inverter:     &types.InverterOverrides{InverterEfficiency: num(0.98), InverterCostPerKW: num(1700)},
			Installation: &types.InstallationOverrides{InstallationMultiplier: num(1.35)},
		},
	},
	{
		Name:        "northern-romania",
		Description: "Lower solar irradiance, slightly oversized system",
		Overrides: types.ConfigurationOverrides{
			Solar:         &types.SolarOverrides{PeakSunHours: num(4.0), ProductionRatio: num(1.2)},
			SystemOptions: &types.SystemOptionsOverrides{Optimal: variant(1.15, 1.1, 1.1, 1.0)},
		},
	},
	{
		Name:        "southern-romania",
		Description: "Higher solar irradiance, slightly smaller system",
		Overrides: types.ConfigurationOverrides{
			Solar:         &types.SolarOverrides{PeakSunHours: num(5.2), ProductionRatio: num(1.5)},
			SystemOptions: &types.SystemOptionsOverrides{Optimal: variant(0.95, 0.9, 0.95, 1.1)},
		},
	},
	{
		Name:        "off-grid",
		Description: "Long autonomy and a higher inverter margin for off-grid use",
		Overrides: types.ConfigurationOverrides{
			Battery:       &types.BatteryOverrides{AutonomyDays: num(4), BatteryEfficiency: num(0.92), BatteryCostPerKWH: num(2100)},
			Inverter:      &types.InverterOverrides{SafetyMargin: num(1.5)},
			SystemOptions: &types.SystemOptionsOverrides{Optimal: variant(1.4, 1.5, 1.6, 1.2)},
		},
	},
	{
		Name:        "grid-tied-minimal",
		Description: "Mostly grid-tied with a minimal backup battery",
		Overrides: types.ConfigurationOverrides{
			Battery:       &types.BatteryOverrides{AutonomyDays: num(0.5), BatteryCostPerKWH: num(1700)},
			Inverter:      &types.InverterOverrides{InverterType: str("Grid-tie with Backup")},
			SystemOptions: &types.SystemOptionsOverrides{Conservative: variant(0.7, 0.3, 0.65, 0.7)},
		},
	},
	{
		Name:        "ev-ready",
		Description: "Extra capacity for electric vehicle charging",
		Overrides: types.ConfigurationOverrides{
			Solar:         &types.SolarOverrides{PanelWattage: num(500)},
			Inverter:      &types.InverterOverrides{SafetyMargin: num(1.4)},
			SystemOptions: &types.SystemOptionsOverrides{Aggressive: variant(1.6, 1.4, 1.7, 1.4)},
			Financial:     &types.FinancialOverrides{ElectricityPricePerKWH: num(0.90)},
		},
	},
	{
		Name:        "market-2024",
		Description: "2024 Romanian market prices",
		Overrides: types.ConfigurationOverrides{
			Solar:        &types.SolarOverrides{PanelCostPerWatt: num(4.20)},
			Battery:      &types.BatteryOverrides{BatteryCostPerKWH: num(2100)},
			Inverter:     &types.InverterOverrides{InverterCostPerKW: num(1550)},
			Financial:    &types.FinancialOverrides{ElectricityPricePerKWH: num(0.85), EURToRONRate: num(4.97)},
			Installation: &types.InstallationOverrides{InstallationMultiplier: num(1.32)},
		},
	},
	{
		Name:        "mountain",
		Description: "High altitude: better sun, colder batteries",
		Overrides: types.ConfigurationOverrides{
			Solar:   &types.SolarOverrides{PeakSunHours: num(4.8), ProductionRatio: num(1.4), PanelEfficiency: num(0.82)},
			Battery: &types.BatteryOverrides{AutonomyDays: num(3), BatteryEfficiency: num(0.88)},
		},
	},
	{
		Name:        "urban-high-rise",
		Description: "Shaded urban roofs with higher installation costs",
		Overrides: types.ConfigurationOverrides{
			Solar:         &types.SolarOverrides{PeakSunHours: num(3.8), ProductionRatio: num(1.1)},
			Installation:  &types.InstallationOverrides{InstallationMultiplier: num(1.45)},
			SystemOptions: &types.SystemOptionsOverrides{Optimal: variant(1.2, 1.0, 1.15, 0.95)},
		},
	},
}
