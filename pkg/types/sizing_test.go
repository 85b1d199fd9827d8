package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayback(t *testing.T) {
	t.Run("bounded", func(t *testing.T) {
		p := BoundedPayback(10000, 1000)
		assert.False(t, p.Unbounded)
		assert.InDelta(t, 10.0, p.Years, 1e-9)

		b, err := json.Marshal(p)
		require.NoError(t, err)
		assert.Equal(t, "10", string(b))
		assert.Equal(t, "10.0 years", p.String())
	})

	t.Run("zero savings", func(t *testing.T) {
		p := BoundedPayback(10000, 0)
		assert.True(t, p.Unbounded)
		assert.Zero(t, p.Years)

		b, err := json.Marshal(p)
		require.NoError(t, err)
		assert.Equal(t, `"unbounded"`, string(b))
	})

	t.Run("round trip inside result", func(t *testing.T) {
		in := SizingResult{Payback: Payback{Unbounded: true}, NumberOfPanels: 3}
		b, err := json.Marshal(in)
		require.NoError(t, err)
		assert.Contains(t, string(b), `"paybackYears":"unbounded"`)

		var out SizingResult
		require.NoError(t, json.Unmarshal(b, &out))
		assert.True(t, out.Payback.Unbounded)
		assert.Equal(t, 3, out.NumberOfPanels)
	})

	t.Run("invalid string", func(t *testing.T) {
		var p Payback
		assert.Error(t, json.Unmarshal([]byte(`"forever"`), &p))
	})
}

func TestReading(t *testing.T) {
	r := Reading{EnergyKWH: 1.6, Hour: 0, Day: 1, Month: 6, Year: 2024}
	require.NoError(t, r.Validate())
	assert.Equal(t, "1-6", r.DayKey())
	assert.Equal(t, 2024, r.Timestamp().Year())
	assert.Equal(t, 6, int(r.Timestamp().Month()))

	bad := []Reading{
		{EnergyKWH: -1, Day: 1, Month: 1, Year: 2024},
		{EnergyKWH: 1, Hour: 24, Day: 1, Month: 1, Year: 2024},
		{EnergyKWH: 1, Day: 0, Month: 1, Year: 2024},
		{EnergyKWH: 1, Day: 1, Month: 13, Year: 2024},
		{EnergyKWH: 1, Day: 1, Month: 1, Year: 1999},
	}
	for _, b := range bad {
		assert.Error(t, b.Validate(), "%+v", b)
	}
}
