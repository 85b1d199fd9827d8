package types

import (
	"encoding/json"
	"fmt"
	"math"
)

// PaybackUnbounded is how an unbounded payback is encoded in JSON.
const PaybackUnbounded = "unbounded"

// Payback is the number of years until savings cover the system cost.
// Unbounded is set when there are no savings to pay it back with; Years is
// then zero and must not be displayed.
type Payback struct {
	Years     float64
	Unbounded bool
}

// BoundedPayback builds a Payback from a cost and yearly savings.
func BoundedPayback(cost, annualSavings float64) Payback {
	if annualSavings <= 0 || math.IsNaN(annualSavings) {
		return Payback{Unbounded: true}
	}
	years := cost / annualSavings
	if math.IsInf(years, 0) || math.IsNaN(years) {
		return Payback{Unbounded: true}
	}
	return Payback{Years: years}
}

// MarshalJSON encodes a number of years or the string "unbounded".
func (p Payback) MarshalJSON() ([]byte, error) {
	if p.Unbounded {
		return json.Marshal(PaybackUnbounded)
	}
	return json.Marshal(p.Years)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Payback) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s != PaybackUnbounded {
			return fmt.Errorf("invalid payback: %q", s)
		}
		*p = Payback{Unbounded: true}
		return nil
	}
	var years float64
	if err := json.Unmarshal(b, &years); err != nil {
		return fmt.Errorf("invalid payback: %w", err)
	}
	*p = Payback{Years: years}
	return nil
}

// String formats the payback for display.
func (p Payback) String() string {
	if p.Unbounded {
		return PaybackUnbounded
	}
	return fmt.Sprintf("%.1f years", p.Years)
}

// ROI is the return on investment over a number of years, in percent.
type ROI struct {
	Years     float64 `json:"years"`
	Percent   float64 `json:"percent"`
	Unbounded bool    `json:"unbounded,omitempty"`
}

// CostBreakdown splits the total system cost by component. Installation is
// the overhead the installation multiplier adds over the equipment.
type CostBreakdown struct {
	Panels       float64 `json:"panels"`
	Battery      float64 `json:"battery"`
	Inverter     float64 `json:"inverter"`
	Installation float64 `json:"installation"`
}

// VariantName identifies one of the sizing variants.
type VariantName string

const (
	VariantConservative VariantName = "conservative"
	VariantOptimal      VariantName = "optimal"
	VariantAggressive   VariantName = "aggressive"
)

// Variant is a scaled derivative of the optimal sizing.
type Variant struct {
	Name                   VariantName        `json:"name"`
	Description            string             `json:"description"`
	Multipliers            VariantMultipliers `json:"multipliers"`
	PVArraySizeKW          float64            `json:"pvSize"`
	NumberOfPanels         int                `json:"panels"`
	BatteryCapacityKWH     float64            `json:"battery"`
	TotalSystemCost        float64            `json:"cost"`
	EnergyOffsetPercentage float64            `json:"offset"`
}

// ReferenceSystem is an entry of the installer reference table.
type ReferenceSystem struct {
	KW                  float64 `json:"kw"`
	Panels              int     `json:"panels"`
	AreaM2              float64 `json:"areaM2"`
	AnnualProductionKWH float64 `json:"annualProduction"`
}

// SizingResult is the output of the sizing engine.
type SizingResult struct {
	DailyEnergyKWH         float64       `json:"dailyEnergyKwh"`
	PeakPowerKW            float64       `json:"peakPowerKw"`
	PVArraySizeKW          float64       `json:"pvArraySizeKw"`
	NumberOfPanels         int           `json:"numberOfPanels"`
	BatteryCapacityKWH     float64       `json:"batteryCapacityKwh"`
	InverterSizeKW         float64       `json:"inverterSizeKw"`
	TotalSystemCost        float64       `json:"totalSystemCost"`
	AnnualEnergyProduction float64       `json:"annualEnergyProduction"`
	EnergyOffsetPercentage float64       `json:"energyOffsetPercentage"`
	Payback                Payback       `json:"paybackYears"`
	AnnualSavings          float64       `json:"annualSavings"`
	ElectricityCostPerKWH  float64       `json:"electricityCostPerKwh"`
	Costs                  CostBreakdown `json:"costs"`
	Variants               []Variant     `json:"variants"`

	ROI             ROI              `json:"roi"`
	RoofAreaM2      float64          `json:"roofAreaM2"`
	TotalWithVAT    float64          `json:"totalWithVat"`
	ReferenceSystem *ReferenceSystem `json:"referenceSystem,omitempty"`

	// Warnings lists non-fatal conditions such as an unbounded payback.
	Warnings []string `json:"warnings,omitempty"`
}

// Variant returns the named variant, if present.
func (r SizingResult) Variant(name VariantName) (Variant, bool) {
	for _, v := range r.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// Validation is the advisory outcome of checking a configuration against
// realistic market ranges.
type Validation struct {
	IsValid  bool     `json:"isValid"`
	Warnings []string `json:"warnings"`
}
