package models

// -----------------------------------------------------------------------------
// Alert directions and client-facing alert texts (client wire format)
// -----------------------------------------------------------------------------

const (
	DirectionBelow = "below"
	DirectionAbove = "above"

	AlertTextBelow = "Price below threshold!"
	AlertTextAbove = "Price above threshold!"
)

// -----------------------------------------------------------------------------

// MAlertEvent is the full record of one emitted alert. This is what the
// history store and the recent-alerts buffer keep; clients receive the
// reduced MAlertMessage instead.
type MAlertEvent struct {
	ClientID  string  `json:"client_id"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Threshold float64 `json:"threshold"`
	Direction string  `json:"direction"`
	Timestamp int64   `json:"timestamp"`
}

// -----------------------------------------------------------------------------

// MAlertMessage is the outbound client frame.
type MAlertMessage struct {
	Stock string  `json:"stock"`
	Price float64 `json:"price"`
	Alert string  `json:"alert"`
}

// -----------------------------------------------------------------------------

// Message converts an event into the client wire frame.
func (e MAlertEvent) Message() MAlertMessage {
	text := AlertTextBelow
	if e.Direction == DirectionAbove {
		text = AlertTextAbove
	}
	return MAlertMessage{
		Stock: e.Symbol,
		Price: e.Price,
		Alert: text,
	}
}
