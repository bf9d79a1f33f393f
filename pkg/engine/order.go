package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Side of the book an order rests on or takes from.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// ParseSide canonicalizes a wire-format side string.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(s) {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	default:
		return 0, fmt.Errorf("unknown side %q", s)
	}
}

// OrderType selects the matching policy.
type OrderType int

const (
	Limit OrderType = iota
	Market
	IOC
	FOK
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "MARKET"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	default:
		return "LIMIT"
	}
}

// ParseOrderType canonicalizes a wire-format order type string.
func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToUpper(s) {
	case "LIMIT":
		return Limit, nil
	case "MARKET":
		return Market, nil
	case "IOC":
		return IOC, nil
	case "FOK":
		return FOK, nil
	default:
		return 0, fmt.Errorf("unknown order type %q", s)
	}
}

// Order is a resting or incoming order inside the engine.
type Order struct {
	ID     uint64
	Symbol string
	Side   Side
	Type   OrderType
	Price  float64
	Qty    float64
}

// Trade is one fill produced by the matcher.
type Trade struct {
	ID           uint64  `json:"id"`
	Symbol       string  `json:"symbol"`
	Price        float64 `json:"price"`
	Qty          float64 `json:"quantity"`
	MakerOrderID uint64  `json:"maker_order_id"`
	TakerOrderID uint64  `json:"taker_order_id"`
	Aggressor    string  `json:"aggressor_side"`
	MakerFee     float64 `json:"maker_fee"`
	TakerFee     float64 `json:"taker_fee"`
	Timestamp    int64   `json:"timestamp"` // unix micros
}

// Level is one aggregated price level of a depth snapshot.
type Level struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"quantity"`
}

// Snapshot is a bounded best-first view of one book.
type Snapshot struct {
	Symbol string  `json:"symbol"`
	Bids   []Level `json:"bids"`
	Asks   []Level `json:"asks"`
	Depth  int     `json:"depth"`
}

var (
	orderIDCounter atomic.Uint64
	tradeIDCounter atomic.Uint64
)

func nextOrderID() uint64 { return orderIDCounter.Add(1) }
func nextTradeID() uint64 { return tradeIDCounter.Add(1) }
