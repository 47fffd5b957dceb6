package models

import "github.com/shopspring/decimal"

// -----------------------------------------------------------------------------
// MClientCommand for inbound client messages
// -----------------------------------------------------------------------------

// Threshold is decoded through shopspring/decimal so that both JSON numbers
// and numeric strings are accepted, so clients may send either form.
type MClientCommand struct {
	Action    string           `json:"action"`
	Stock     string           `json:"stock"`
	Threshold *decimal.Decimal `json:"threshold"`
}

// -----------------------------------------------------------------------------

// MErrorReply is sent back to a client whose command could not be applied.
// The session stays open; the command is simply dropped.
type MErrorReply struct {
	Error string `json:"error"`
}
