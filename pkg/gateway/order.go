package gateway

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jwhyun/matchgate/pkg/engine"
)

// Number accepts a JSON string or number token without failing the
// surrounding decode; parsing is deferred to Normalize so one bad
// order cannot abort its siblings.
type Number struct {
	raw string
}

func (n *Number) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n.raw = s
		return nil
	}
	n.raw = string(b)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n.raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(n.raw)
}

// Float parses the token as a finite float64.
func (n Number) Float() (float64, error) {
	if n.raw == "" || n.raw == "null" {
		return 0, fmt.Errorf("missing value")
	}
	f, err := strconv.ParseFloat(n.raw, 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable number %q", n.raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite number %q", n.raw)
	}
	return f, nil
}

// OrderRequest is the wire form of one submitted order.
type OrderRequest struct {
	Symbol    string `json:"symbol"`
	Price     Number `json:"price"`
	Quantity  Number `json:"quantity"`
	Side      string `json:"side"`
	OrderType string `json:"order_type"`
}

// Order is a normalized order admitted to the ingest queue.
type Order struct {
	Symbol string
	Price  float64
	Qty    float64
	Side   engine.Side
	Type   engine.OrderType
}

// ValidationError marks a malformed order field. It rejects only the
// offending order, never its siblings.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Normalize validates an OrderRequest and canonicalizes it: side and
// order type uppercase, price/quantity finite positive floats, symbol
// non-empty.
func Normalize(req OrderRequest) (Order, error) {
	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		return Order{}, &ValidationError{Field: "symbol", Reason: "empty"}
	}

	price, err := req.Price.Float()
	if err != nil {
		return Order{}, &ValidationError{Field: "price", Reason: err.Error()}
	}
	qty, err := req.Quantity.Float()
	if err != nil {
		return Order{}, &ValidationError{Field: "quantity", Reason: err.Error()}
	}
	if qty <= 0 {
		return Order{}, &ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	side, err := engine.ParseSide(req.Side)
	if err != nil {
		return Order{}, &ValidationError{Field: "side", Reason: err.Error()}
	}
	typ, err := engine.ParseOrderType(req.OrderType)
	if err != nil {
		return Order{}, &ValidationError{Field: "order_type", Reason: err.Error()}
	}
	if typ != engine.Market && price <= 0 {
		return Order{}, &ValidationError{Field: "price", Reason: "must be positive"}
	}

	return Order{
		Symbol: symbol,
		Price:  price,
		Qty:    qty,
		Side:   side,
		Type:   typ,
	}, nil
}
