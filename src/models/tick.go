package models

// MTick represents one (symbol, price) observation from the upstream feed.
// Ticks are transient: they flow through the fan-out once and are not stored.
type MTick struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	ReceivedAt int64   `json:"received_at"`
}

// -----------------------------------------------------------------------------
// Feed status snapshot (exposed on /api/health)
// -----------------------------------------------------------------------------

type MFeedStatus struct {
	Connected  bool  `json:"connected"`
	LastTickAt int64 `json:"last_tick_at"`
	Reconnects int64 `json:"reconnects"`
}
