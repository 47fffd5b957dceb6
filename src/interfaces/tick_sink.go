package interfaces

import "alert-relay/src/models"

// -----------------------------------------------------------------------------
// ITickSink receives upstream ticks for evaluation and fan-out.
// -----------------------------------------------------------------------------

type ITickSink interface {
	// Dispatch evaluates one tick against all subscribers of its symbol.
	// Returns the number of alerts emitted.
	Dispatch(tick models.MTick) int
}
