package relay

import "alert-relay/src/models"

// -----------------------------------------------------------------------------
// AlertState machine
// -----------------------------------------------------------------------------

// AlertState tracks which side of the threshold a subscription last alerted
// on. Alerts are edge-triggered: a crossing fires exactly once, and no
// further alert fires until the price crosses back to the other side.
type AlertState int

const (
	Neutral AlertState = iota
	AlertedBelow
	AlertedAbove
)

// -----------------------------------------------------------------------------

func (s AlertState) String() string {
	switch s {
	case AlertedBelow:
		return "alerted_below"
	case AlertedAbove:
		return "alerted_above"
	default:
		return "neutral"
	}
}

// -----------------------------------------------------------------------------

// Next evaluates one tick price against a threshold. It returns the new
// state, the alert direction, and whether an alert fires.
//
// A price exactly equal to the threshold neither fires nor changes state,
// from whichever side it is approached.
func Next(state AlertState, price, threshold float64) (AlertState, string, bool) {
	switch {
	case price < threshold:
		if state != AlertedBelow {
			return AlertedBelow, models.DirectionBelow, true
		}
	case price > threshold:
		if state != AlertedAbove {
			return AlertedAbove, models.DirectionAbove, true
		}
	}
	return state, "", false
}
