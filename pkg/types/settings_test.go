package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateConfiguration(t *testing.T) {
	t.Run("v1: initial", func(t *testing.T) {
		c, changed, err := MigrateConfiguration(SavedConfiguration{}, 0)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, c.Presets)
	})

	t.Run("v1 to v2: legacy preset names", func(t *testing.T) {
		old := SavedConfiguration{
			Presets: []string{"premiumConfig", "southernRomaniaConfig", "custom"},
		}
		c, changed, err := MigrateConfiguration(old, 1)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []string{"premium", "southern-romania", "custom"}, c.Presets)
		// the input slice is left alone
		assert.Equal(t, "premiumConfig", old.Presets[0])
	})

	t.Run("v2 to v3: lowercase presets", func(t *testing.T) {
		c, changed, err := MigrateConfiguration(SavedConfiguration{Presets: []string{" Budget", "mountain"}}, 2)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []string{"budget", "mountain"}, c.Presets)
	})

	t.Run("no change: current version", func(t *testing.T) {
		current := SavedConfiguration{
			Presets: []string{"budgetConfig"},
			Label:   "house",
		}
		c, changed, err := MigrateConfiguration(current, CurrentConfigurationVersion)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, current, c)
	})
}
