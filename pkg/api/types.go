package api

import "github.com/jwhyun/matchgate/pkg/engine"

// API response types for REST endpoints and WebSocket messages

// SubmitResponse acknowledges accepted orders.
type SubmitResponse struct {
	Status   string `json:"status"` // always "queued"
	Count    int    `json:"count"`
	Rejected int    `json:"rejected,omitempty"` // validation drops, if any
}

// OverloadedResponse signals backpressure (HTTP 429). Accepted orders
// stay enqueued; nothing is rolled back.
type OverloadedResponse struct {
	Error    string `json:"error"` // always "overloaded"
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
}

// ErrorResponse is the generic error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SnapshotMessage is one frame of the market data stream.
type SnapshotMessage struct {
	Snapshot engine.Snapshot `json:"snapshot"`
}

// TradesResponse lists recent fills for one symbol.
type TradesResponse struct {
	Symbol string         `json:"symbol"`
	Trades []engine.Trade `json:"trades"`
}

// HealthResponse reports process liveness and queue pressure.
type HealthResponse struct {
	Status  string `json:"status"`
	Pending int    `json:"pending"`
	Clients int    `json:"clients"`
}
