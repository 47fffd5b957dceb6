package relay

import (
	"testing"

	"alert-relay/src/models"

	"github.com/stretchr/testify/assert"
)

// -----------------------------------------------------------------------------

func TestNextTransitionTable(t *testing.T) {
	const threshold = 150.0

	cases := []struct {
		name      string
		state     AlertState
		price     float64
		wantState AlertState
		wantDir   string
		wantFired bool
	}{
		{"neutral below", Neutral, 149, AlertedBelow, models.DirectionBelow, true},
		{"neutral above", Neutral, 151, AlertedAbove, models.DirectionAbove, true},
		{"neutral equal", Neutral, 150, Neutral, "", false},
		{"below stays below", AlertedBelow, 148, AlertedBelow, "", false},
		{"below crosses above", AlertedBelow, 151, AlertedAbove, models.DirectionAbove, true},
		{"below equal", AlertedBelow, 150, AlertedBelow, "", false},
		{"above crosses below", AlertedAbove, 149, AlertedBelow, models.DirectionBelow, true},
		{"above stays above", AlertedAbove, 152, AlertedAbove, "", false},
		{"above equal", AlertedAbove, 150, AlertedAbove, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state, dir, fired := Next(tc.state, tc.price, threshold)
			assert.Equal(t, tc.wantState, state)
			assert.Equal(t, tc.wantDir, dir)
			assert.Equal(t, tc.wantFired, fired)
		})
	}
}

// -----------------------------------------------------------------------------

// A run of ticks on one side of the threshold fires exactly once.
func TestNoDoubleFireOnSameSide(t *testing.T) {
	const threshold = 150.0

	state := Neutral
	fires := 0
	for _, price := range []float64{148, 147, 149.9, 100} {
		var fired bool
		state, _, fired = Next(state, price, threshold)
		if fired {
			fires++
		}
	}

	assert.Equal(t, 1, fires)
	assert.Equal(t, AlertedBelow, state)
}

// -----------------------------------------------------------------------------

// Oscillating across the threshold fires on every crossing, alternating.
func TestOscillationFiresEachCrossing(t *testing.T) {
	const threshold = 150.0

	state := Neutral
	var directions []string
	for _, price := range []float64{151, 149, 151, 149} {
		var dir string
		var fired bool
		state, dir, fired = Next(state, price, threshold)
		assert.True(t, fired, "price %v should fire", price)
		directions = append(directions, dir)
	}

	assert.Equal(t, []string{
		models.DirectionAbove,
		models.DirectionBelow,
		models.DirectionAbove,
		models.DirectionBelow,
	}, directions)
}

// -----------------------------------------------------------------------------

func TestAlertStateString(t *testing.T) {
	assert.Equal(t, "neutral", Neutral.String())
	assert.Equal(t, "alerted_below", AlertedBelow.String())
	assert.Equal(t, "alerted_above", AlertedAbove.String())
}
