package types

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned when a configuration cannot be used to
// size a system.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// SolarParams are the photovoltaic panel parameters.
type SolarParams struct {
	PanelWattage     float64 `json:"panelWattage" yaml:"panelWattage"`
	PanelEfficiency  float64 `json:"panelEfficiency" yaml:"panelEfficiency"`
	PeakSunHours     float64 `json:"peakSunHours" yaml:"peakSunHours"`
	ProductionRatio  float64 `json:"productionRatio" yaml:"productionRatio"`
	PanelCostPerWatt float64 `json:"panelCostPerWatt" yaml:"panelCostPerWatt"`
	PanelAreaM2      float64 `json:"panelAreaM2" yaml:"panelAreaM2"`
}

// BatteryParams are the storage parameters.
type BatteryParams struct {
	AutonomyDays      float64 `json:"autonomyDays" yaml:"autonomyDays"`
	BatteryEfficiency float64 `json:"batteryEfficiency" yaml:"batteryEfficiency"`
	BatteryCycleLife  float64 `json:"batteryCycleLife" yaml:"batteryCycleLife"`
	BatteryCostPerKWH float64 `json:"batteryCostPerKwh" yaml:"batteryCostPerKwh"`
	BatteryTechnology string  `json:"batteryTechnology" yaml:"batteryTechnology"`
}

// InverterParams are the inverter parameters.
type InverterParams struct {
	// SafetyMargin is the headroom over peak demand, 1.2 means 20%.
	SafetyMargin       float64 `json:"safetyMargin" yaml:"safetyMargin"`
	InverterCostPerKW  float64 `json:"inverterCostPerKw" yaml:"inverterCostPerKw"`
	InverterType       string  `json:"inverterType" yaml:"inverterType"`
	InverterEfficiency float64 `json:"inverterEfficiency" yaml:"inverterEfficiency"`
}

// InstallationParams covers labor and warranty.
type InstallationParams struct {
	// InstallationMultiplier is applied to the equipment cost, 1.3 adds 30%.
	InstallationMultiplier float64 `json:"installationMultiplier" yaml:"installationMultiplier"`
	WarrantyYears          float64 `json:"warrantyYears" yaml:"warrantyYears"`
}

// FinancialParams are the money-related parameters.
type FinancialParams struct {
	ElectricityPricePerKWH float64 `json:"electricityPricePerKwh" yaml:"electricityPricePerKwh"`
	EURToRONRate           float64 `json:"eurToRonRate" yaml:"eurToRonRate"`
	VATRate                float64 `json:"vatRate" yaml:"vatRate"`
}

// VariantMultipliers scale the optimal result into a named variant.
type VariantMultipliers struct {
	PV      float64 `json:"pvMultiplier" yaml:"pvMultiplier"`
	Battery float64 `json:"batteryMultiplier" yaml:"batteryMultiplier"`
	Cost    float64 `json:"costMultiplier" yaml:"costMultiplier"`
	Offset  float64 `json:"offsetMultiplier" yaml:"offsetMultiplier"`
}

// SystemOptions holds the three named sizing variants.
type SystemOptions struct {
	Conservative VariantMultipliers `json:"conservative" yaml:"conservative"`
	Optimal      VariantMultipliers `json:"optimal" yaml:"optimal"`
	Aggressive   VariantMultipliers `json:"aggressive" yaml:"aggressive"`
}

// Configuration is the complete parameter set consumed by the sizing engine.
// It is treated as an immutable value.
type Configuration struct {
	Solar         SolarParams        `json:"solar" yaml:"solar"`
	Battery       BatteryParams      `json:"battery" yaml:"battery"`
	Inverter      InverterParams     `json:"inverter" yaml:"inverter"`
	Installation  InstallationParams `json:"installation" yaml:"installation"`
	Financial     FinancialParams    `json:"financial" yaml:"financial"`
	SystemOptions SystemOptions      `json:"systemOptions" yaml:"systemOptions"`
}

// DefaultConfiguration returns the default parameters, based on Romanian
// market prices in RON.
func DefaultConfiguration() Configuration {
	return Configuration{
		Solar: SolarParams{
			PanelWattage:     415,
			PanelEfficiency:  0.85,
			PeakSunHours:     4.5,
			ProductionRatio:  1.3,
			PanelCostPerWatt: 3.98,
			PanelAreaM2:      2.0,
		},
		Battery: BatteryParams{
			AutonomyDays:      2,
			BatteryEfficiency: 0.9,
			BatteryCycleLife:  5000,
			BatteryCostPerKWH: 1988,
			BatteryTechnology: "Lithium-ion",
		},
		Inverter: InverterParams{
			SafetyMargin:       1.2,
			InverterCostPerKW:  1491,
			InverterType:       "Hybrid Grid-tie",
			InverterEfficiency: 0.97,
		},
		Installation: InstallationParams{
			InstallationMultiplier: 1.3,
			WarrantyYears:          25,
		},
		Financial: FinancialParams{
			ElectricityPricePerKWH: 0.80,
			EURToRONRate:           4.97,
			VATRate:                0.19,
		},
		SystemOptions: SystemOptions{
			Conservative: VariantMultipliers{PV: 0.8, Battery: 0.6, Cost: 0.75, Offset: 0.8},
			Optimal:      VariantMultipliers{PV: 1.0, Battery: 1.0, Cost: 1.0, Offset: 1.0},
			Aggressive:   VariantMultipliers{PV: 1.3, Battery: 1.2, Cost: 1.4, Offset: 1.3},
		},
	}
}

// SolarOverrides is a partial SolarParams.
type SolarOverrides struct {
	PanelWattage     *float64 `json:"panelWattage,omitempty" yaml:"panelWattage,omitempty"`
	PanelEfficiency  *float64 `json:"panelEfficiency,omitempty" yaml:"panelEfficiency,omitempty"`
	PeakSunHours     *float64 `json:"peakSunHours,omitempty" yaml:"peakSunHours,omitempty"`
	ProductionRatio  *float64 `json:"productionRatio,omitempty" yaml:"productionRatio,omitempty"`
	PanelCostPerWatt *float64 `json:"panelCostPerWatt,omitempty" yaml:"panelCostPerWatt,omitempty"`
	PanelAreaM2      *float64 `json:"panelAreaM2,omitempty" yaml:"panelAreaM2,omitempty"`
}

// BatteryOverrides is a partial BatteryParams.
type BatteryOverrides struct {
	AutonomyDays      *float64 `json:"autonomyDays,omitempty" yaml:"autonomyDays,omitempty"`
	BatteryEfficiency *float64 `json:"batteryEfficiency,omitempty" yaml:"batteryEfficiency,omitempty"`
	BatteryCycleLife  *float64 `json:"batteryCycleLife,omitempty" yaml:"batteryCycleLife,omitempty"`
	BatteryCostPerKWH *float64 `json:"batteryCostPerKwh,omitempty" yaml:"batteryCostPerKwh,omitempty"`
	BatteryTechnology *string  `json:"batteryTechnology,omitempty" yaml:"batteryTechnology,omitempty"`
}

// InverterOverrides is a partial InverterParams.
type InverterOverrides struct {
	SafetyMargin       *float64 `json:"safetyMargin,omitempty" yaml:"safetyMargin,omitempty"`
	InverterCostPerKW  *float64 `json:"inverterCostPerKw,omitempty" yaml:"inverterCostPerKw,omitempty"`
	InverterType       *string  `json:"inverterType,omitempty" yaml:"inverterType,omitempty"`
	InverterEfficiency *float64 `json:"inverterEfficiency,omitempty" yaml:"inverterEfficiency,omitempty"`
}

// InstallationOverrides is a partial InstallationParams.
type InstallationOverrides struct {
	InstallationMultiplier *float64 `json:"installationMultiplier,omitempty" yaml:"installationMultiplier,omitempty"`
	WarrantyYears          *float64 `json:"warrantyYears,omitempty" yaml:"warrantyYears,omitempty"`
}

// FinancialOverrides is a partial FinancialParams.
type FinancialOverrides struct {
	ElectricityPricePerKWH *float64 `json:"electricityPricePerKwh,omitempty" yaml:"electricityPricePerKwh,omitempty"`
	EURToRONRate           *float64 `json:"eurToRonRate,omitempty" yaml:"eurToRonRate,omitempty"`
	VATRate                *float64 `json:"vatRate,omitempty" yaml:"vatRate,omitempty"`
}

// VariantOverrides replaces a whole variant. Every multiplier must be set.
type VariantOverrides struct {
	PV      *float64 `json:"pvMultiplier,omitempty" yaml:"pvMultiplier,omitempty"`
	Battery *float64 `json:"batteryMultiplier,omitempty" yaml:"batteryMultiplier,omitempty"`
	Cost    *float64 `json:"costMultiplier,omitempty" yaml:"costMultiplier,omitempty"`
	Offset  *float64 `json:"offsetMultiplier,omitempty" yaml:"offsetMultiplier,omitempty"`
}

// SystemOptionsOverrides replaces individual variants.
type SystemOptionsOverrides struct {
	Conservative *VariantOverrides `json:"conservative,omitempty" yaml:"conservative,omitempty"`
	Optimal      *VariantOverrides `json:"optimal,omitempty" yaml:"optimal,omitempty"`
	Aggressive   *VariantOverrides `json:"aggressive,omitempty" yaml:"aggressive,omitempty"`
}

// ConfigurationOverrides is a partial Configuration. Unset fields keep the
// value they are merged over.
type ConfigurationOverrides struct {
	Solar         *SolarOverrides         `json:"solar,omitempty" yaml:"solar,omitempty"`
	Battery       *BatteryOverrides       `json:"battery,omitempty" yaml:"battery,omitempty"`
	Inverter      *InverterOverrides      `json:"inverter,omitempty" yaml:"inverter,omitempty"`
	Installation  *InstallationOverrides  `json:"installation,omitempty" yaml:"installation,omitempty"`
	Financial     *FinancialOverrides     `json:"financial,omitempty" yaml:"financial,omitempty"`
	SystemOptions *SystemOptionsOverrides `json:"systemOptions,omitempty" yaml:"systemOptions,omitempty"`
}

// Merge returns a copy of c with o applied group by group. Within
// systemOptions a variant is replaced as a whole, so a replacement that does
// not set all four multipliers is an error.
func (c Configuration) Merge(o ConfigurationOverrides) (Configuration, error) {
	if s := o.Solar; s != nil {
		setFloat(&c.Solar.PanelWattage, s.PanelWattage)
		setFloat(&c.Solar.PanelEfficiency, s.PanelEfficiency)
		setFloat(&c.Solar.PeakSunHours, s.PeakSunHours)
		setFloat(&c.Solar.ProductionRatio, s.ProductionRatio)
		setFloat(&c.Solar.PanelCostPerWatt, s.PanelCostPerWatt)
		setFloat(&c.Solar.PanelAreaM2, s.PanelAreaM2)
	}
	if b := o.Battery; b != nil {
		setFloat(&c.Battery.AutonomyDays, b.AutonomyDays)
		setFloat(&c.Battery.BatteryEfficiency, b.BatteryEfficiency)
		setFloat(&c.Battery.BatteryCycleLife, b.BatteryCycleLife)
		setFloat(&c.Battery.BatteryCostPerKWH, b.BatteryCostPerKWH)
		if b.BatteryTechnology != nil {
			c.Battery.BatteryTechnology = *b.BatteryTechnology
		}
	}
	if i := o.Inverter; i != nil {
		setFloat(&c.Inverter.SafetyMargin, i.SafetyMargin)
		setFloat(&c.Inverter.InverterCostPerKW, i.InverterCostPerKW)
		setFloat(&c.Inverter.InverterEfficiency, i.InverterEfficiency)
		if i.InverterType != nil {
			c.Inverter.InverterType = *i.InverterType
		}
	}
	if i := o.Installation; i != nil {
		setFloat(&c.Installation.InstallationMultiplier, i.InstallationMultiplier)
		setFloat(&c.Installation.WarrantyYears, i.WarrantyYears)
	}
	if f := o.Financial; f != nil {
		setFloat(&c.Financial.ElectricityPricePerKWH, f.ElectricityPricePerKWH)
		setFloat(&c.Financial.EURToRONRate, f.EURToRONRate)
		setFloat(&c.Financial.VATRate, f.VATRate)
	}
	if so := o.SystemOptions; so != nil {
		variants := []struct {
			name string
			dst  *VariantMultipliers
			src  *VariantOverrides
		}{
			{"conservative", &c.SystemOptions.Conservative, so.Conservative},
			{"optimal", &c.SystemOptions.Optimal, so.Optimal},
			{"aggressive", &c.SystemOptions.Aggressive, so.Aggressive},
		}
		for _, v := range variants {
			if v.src == nil {
				continue
			}
			m, err := v.src.multipliers()
			if err != nil {
				return Configuration{}, fmt.Errorf("%w: systemOptions.%s: %w", ErrInvalidConfiguration, v.name, err)
			}
			*v.dst = m
		}
	}
	return c, nil
}

// MergeOverrides layers b over a. Fields set in b win, a variant set in b
// replaces the whole variant from a.
func MergeOverrides(a, b ConfigurationOverrides) ConfigurationOverrides {
	out := a
	if b.Solar != nil {
		s := SolarOverrides{}
		if a.Solar != nil {
			s = *a.Solar
		}
		pick(&s.PanelWattage, b.Solar.PanelWattage)
		pick(&s.PanelEfficiency, b.Solar.PanelEfficiency)
		pick(&s.PeakSunHours, b.Solar.PeakSunHours)
		pick(&s.ProductionRatio, b.Solar.ProductionRatio)
		pick(&s.PanelCostPerWatt, b.Solar.PanelCostPerWatt)
		pick(&s.PanelAreaM2, b.Solar.PanelAreaM2)
		out.Solar = &s
	}
	if b.Battery != nil {
		bt := BatteryOverrides{}
		if a.Battery != nil {
			bt = *a.Battery
		}
		pick(&bt.AutonomyDays, b.Battery.AutonomyDays)
		pick(&bt.BatteryEfficiency, b.Battery.BatteryEfficiency)
		pick(&bt.BatteryCycleLife, b.Battery.BatteryCycleLife)
		pick(&bt.BatteryCostPerKWH, b.Battery.BatteryCostPerKWH)
		pick(&bt.BatteryTechnology, b.Battery.BatteryTechnology)
		out.Battery = &bt
	}
	if b.Inverter != nil {
		i := InverterOverrides{}
		if a.Inverter != nil {
			i = *a.Inverter
		}
		pick(&i.SafetyMargin, b.Inverter.SafetyMargin)
		pick(&i.InverterCostPerKW, b.Inverter.InverterCostPerKW)
		pick(&i.InverterType, b.Inverter.InverterType)
		pick(&i.InverterEfficiency, b.Inverter.InverterEfficiency)
		out.Inverter = &i
	}
	if b.Installation != nil {
		i := InstallationOverrides{}
		if a.Installation != nil {
			i = *a.Installation
		}
		pick(&i.InstallationMultiplier, b.Installation.InstallationMultiplier)
		pick(&i.WarrantyYears, b.Installation.WarrantyYears)
		out.Installation = &i
	}
	if b.Financial != nil {
		f := FinancialOverrides{}
		if a.Financial != nil {
			f = *a.Financial
		}
		pick(&f.ElectricityPricePerKWH, b.Financial.ElectricityPricePerKWH)
		pick(&f.EURToRONRate, b.Financial.EURToRONRate)
		pick(&f.VATRate, b.Financial.VATRate)
		out.Financial = &f
	}
	if b.SystemOptions != nil {
		so := SystemOptionsOverrides{}
		if a.SystemOptions != nil {
			so = *a.SystemOptions
		}
		pick(&so.Conservative, b.SystemOptions.Conservative)
		pick(&so.Optimal, b.SystemOptions.Optimal)
		pick(&so.Aggressive, b.SystemOptions.Aggressive)
		out.SystemOptions = &so
	}
	return out
}

func (v VariantOverrides) multipliers() (VariantMultipliers, error) {
	var missing []string
	get := func(name string, p *float64) float64 {
		if p == nil {
			missing = append(missing, name)
			return 0
		}
		return *p
	}
	m := VariantMultipliers{
		PV:      get("pvMultiplier", v.PV),
		Battery: get("batteryMultiplier", v.Battery),
		Cost:    get("costMultiplier", v.Cost),
		Offset:  get("offsetMultiplier", v.Offset),
	}
	if len(missing) > 0 {
		return VariantMultipliers{}, fmt.Errorf("missing %v", missing)
	}
	return m, nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func pick[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}

// Float returns a pointer to v, for building overrides.
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to v, for building overrides.
func String(v string) *string {
	return &v
}
