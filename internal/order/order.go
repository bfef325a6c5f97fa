// Package order
package order

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the caller-requested trade direction. Callers may send the bare
// brokerage primitives ("buy"/"sell") and let the resolver qualify them, or
// send an already-qualified open/close side to disambiguate explicitly.
type Side string

const (
	Buy         Side = "buy"
	Sell        Side = "sell"
	BuyToOpen   Side = "buy_to_open"
	BuyToClose  Side = "buy_to_close"
	SellToOpen  Side = "sell_to_open"
	SellToClose Side = "sell_to_close"
)

// Valid reports whether s is one of the six accepted side values.
func (s Side) Valid() bool {
	switch s {
	case Buy, Sell, BuyToOpen, BuyToClose, SellToOpen, SellToClose:
		return true
	}
	return false
}

// Qualified reports whether s already carries an open/close qualifier.
func (s Side) Qualified() bool {
	switch s {
	case BuyToOpen, BuyToClose, SellToOpen, SellToClose:
		return true
	}
	return false
}

// Primitive maps s to the bare side the brokerage order endpoint accepts on
// the wire. The open/close qualifier is metadata on our end, not transmitted.
func (s Side) Primitive() Side {
	switch s {
	case Buy, BuyToOpen, BuyToClose:
		return Buy
	case Sell, SellToOpen, SellToClose:
		return Sell
	}
	return s
}

// Type is the order type.
type Type string

const (
	Limit  Type = "limit"
	Market Type = "market"
)

// Request is the caller's order intent as received from the HTTP layer.
// Quantity and Price accept both JSON numbers and strings since the UI sends
// whatever its form fields hold.
type Request struct {
	Symbol   string          `json:"symbol"`
	Side     Side            `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Type     Type            `json:"orderType"`
}

// UnmarshalJSON tolerates quoted numerics for quantity and price.
func (r *Request) UnmarshalJSON(data []byte) error {
	var raw struct {
		Symbol   string          `json:"symbol"`
		Side     string          `json:"side"`
		Quantity json.RawMessage `json:"quantity"`
		Price    json.RawMessage `json:"price"`
		Type     string          `json:"orderType"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Symbol = strings.TrimSpace(raw.Symbol)
	r.Side = Side(strings.ToLower(strings.TrimSpace(raw.Side)))
	r.Type = Type(strings.ToLower(strings.TrimSpace(raw.Type)))
	if r.Type == "" {
		r.Type = Limit
	}

	var err error
	if r.Quantity, err = parseDecimalField(raw.Quantity); err != nil {
		return fmt.Errorf("invalid quantity: %w", err)
	}
	if r.Price, err = parseDecimalField(raw.Price); err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}
	return nil
}

func parseDecimalField(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, nil
	}
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// Validate rejects a malformed request before any remote call is made.
func (r Request) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if !r.Side.Valid() {
		return fmt.Errorf("invalid side %q", string(r.Side))
	}
	if r.Type != Limit && r.Type != Market {
		return fmt.Errorf("invalid order type %q", string(r.Type))
	}
	if !r.Quantity.IsPositive() || !r.Quantity.IsInteger() {
		return fmt.Errorf("quantity must be a positive integer, got %s", r.Quantity)
	}
	if r.Type == Limit && !r.Price.IsPositive() {
		return fmt.Errorf("price must be positive for limit orders, got %s", r.Price)
	}
	return nil
}

// LimitPrice returns the request price rounded to the two decimal places the
// brokerage accepts on the wire.
func (r Request) LimitPrice() decimal.Decimal {
	return r.Price.Round(2)
}

// Record is the local projection of the brokerage's order object. Orders are
// never persisted here; the brokerage owns the lifecycle.
type Record struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"`
	Qty        int64           `json:"qty"`
	Type       string          `json:"type"`
	Status     string          `json:"status"`
	LimitPrice decimal.Decimal `json:"limit_price"`
	FilledQty  int64           `json:"filled_qty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Position is a point-in-time snapshot of the caller's holding in one
// contract. Fetched fresh per placement call, never cached.
type Position struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"qty"`
	Side     string          `json:"side"`
}

// SideLabel derives the informational long/short/flat label from the sign of
// the quantity.
func SideLabel(qty decimal.Decimal) string {
	switch {
	case qty.IsPositive():
		return "long"
	case qty.IsNegative():
		return "short"
	}
	return "flat"
}
