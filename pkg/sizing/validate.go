package sizing

import "github.com/pvsizer/pvsizer/pkg/types"

// Validate checks cfg against typical market ranges. The result is advisory
// and does not stop Size from running.
func Validate(cfg types.Configuration) types.Validation {
	warnings := []string{}
	if cfg.Solar.PanelWattage < 250 || cfg.Solar.PanelWattage > 600 {
		warnings = append(warnings, "Panel wattage outside typical range (250-600W)")
	}
	if cfg.Solar.ProductionRatio < 1.0 || cfg.Solar.ProductionRatio > 2.0 {
		warnings = append(warnings, "Production ratio outside typical range (1.0-2.0)")
	}
	if cfg.Battery.BatteryEfficiency < 0.7 || cfg.Battery.BatteryEfficiency > 0.98 {
		warnings = append(warnings, "Battery efficiency outside typical range (70-98%)")
	}
	if cfg.Inverter.InverterEfficiency < 0.90 || cfg.Inverter.InverterEfficiency > 0.99 {
		warnings = append(warnings, "Inverter efficiency outside typical range (90-99%)")
	}
	return types.Validation{IsValid: len(warnings) == 0, Warnings: warnings}
}
