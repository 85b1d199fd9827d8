package types

import (
	"fmt"
	"strings"
)

// CurrentConfigurationVersion is the current version of SavedConfiguration.
// Increment this value when a stored field needs to be rewritten on read.
const CurrentConfigurationVersion = 3

// SavedConfiguration is what a user stores: the presets to apply, their own
// overrides on top, and optionally a fixed electricity price.
type SavedConfiguration struct {
	// Presets are applied in order over the defaults.
	Presets   []string               `json:"presets"`
	Overrides ConfigurationOverrides `json:"overrides"`

	// ElectricityPricePerKWH pins the price used for savings. When nil the
	// configured price provider is asked.
	ElectricityPricePerKWH *float64 `json:"electricityPricePerKwh,omitempty"`

	// Label is a free-form name for the saved configuration.
	Label string `json:"label,omitempty"`
}

// legacyPresetNames maps the camelCase names used by the first version to
// the current preset identifiers.
var legacyPresetNames = map[string]string{
	"budgetConfig":            "budget",
	"premiumConfig":           "premium",
	"northernRomaniaConfig":   "northern-romania",
	"southernRomaniaConfig":   "southern-romania",
	"offGridConfig":           "off-grid",
	"gridTiedMinimalConfig":   "grid-tied-minimal",
	"evReadyConfig":           "ev-ready",
	"currentMarket2024Config": "market-2024",
	"mountainConfig":          "mountain",
	"urbanHighRiseConfig":     "urban-high-rise",
}

// MigrateConfiguration migrates a saved configuration to the current version.
// It returns the migrated configuration, a boolean indicating if changes were
// made, and an error if migration failed.
func MigrateConfiguration(c SavedConfiguration, currentVersion int) (SavedConfiguration, bool, error) {
	if currentVersion >= CurrentConfigurationVersion {
		return c, false, nil
	}

	migrated := false
	for version := currentVersion + 1; version <= CurrentConfigurationVersion; version++ {
		switch version {
		case 1:
			// version 1: initial
		case 2:
			// version 2: presets are identified by their short names
			if len(c.Presets) > 0 {
				presets := make([]string, len(c.Presets))
				for i, name := range c.Presets {
					if renamed, ok := legacyPresetNames[name]; ok {
						name = renamed
						migrated = true
					}
					presets[i] = name
				}
				c.Presets = presets
			}
		case 3:
			// version 3: preset names are case-insensitive and stored lowercase
			if len(c.Presets) > 0 {
				presets := make([]string, len(c.Presets))
				for i, name := range c.Presets {
					presets[i] = strings.ToLower(strings.TrimSpace(name))
					if presets[i] != name {
						migrated = true
					}
				}
				c.Presets = presets
			}
		default:
			return c, false, fmt.Errorf("unknown configuration version: %d", version)
		}
	}

	return c, migrated, nil
}
