// Package broker
package broker

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/amirphl/options-desk/internal/order"
)

// Broker is the interface for the remote order-management service. All
// authoritative state (positions, orders, balances) lives on the other side;
// this process only reads and submits.
type Broker interface {
	Name() string
	GetPosition(ctx context.Context, symbol string) (order.Position, bool, error)
	CreateOrder(ctx context.Context, params OrderParams) (order.Record, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrderStatus(ctx context.Context, orderID string) (order.Record, error)
	GetPositions(ctx context.Context) ([]order.Position, error)
	GetQuotes(ctx context.Context, symbols []string) ([]Quote, error)
	GetOptionChain(ctx context.Context, underlying, expiration string) ([]OptionQuote, error)
	GetExpirations(ctx context.Context, underlying string) ([]string, error)
	GetBalances(ctx context.Context) (Balances, error)
}

// OrderParams is the wire-level order body. Side is always a brokerage
// primitive (buy/sell); the open/close qualification never crosses the wire.
type OrderParams struct {
	Symbol     string
	Side       order.Side
	Quantity   int64
	Type       order.Type
	Price      decimal.Decimal // 2dp, limit orders only
	Duration   string
	OrderClass string // optional classification hint, e.g. "simple"
	Tag        string // client correlation tag
}

// Quote is a level-1 quote for an equity or option symbol.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Description   string          `json:"description"`
	Last          decimal.Decimal `json:"last"`
	Bid           decimal.Decimal `json:"bid"`
	Ask           decimal.Decimal `json:"ask"`
	BidSize       int64           `json:"bidsize"`
	AskSize       int64           `json:"asksize"`
	Volume        int64           `json:"volume"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percentage"`
}

// OptionQuote is one strike row of an option chain.
type OptionQuote struct {
	Symbol         string          `json:"symbol"`
	Underlying     string          `json:"underlying"`
	Strike         decimal.Decimal `json:"strike"`
	OptionType     string          `json:"option_type"` // call | put
	ExpirationDate string          `json:"expiration_date"`
	Bid            decimal.Decimal `json:"bid"`
	Ask            decimal.Decimal `json:"ask"`
	Last           decimal.Decimal `json:"last"`
	Volume         int64           `json:"volume"`
	OpenInterest   int64           `json:"open_interest"`
}

// Balances is the account balance snapshot.
type Balances struct {
	AccountNumber string          `json:"account_number"`
	TotalEquity   decimal.Decimal `json:"total_equity"`
	TotalCash     decimal.Decimal `json:"total_cash"`
	OptionBP      decimal.Decimal `json:"option_buying_power"`
	StockBP       decimal.Decimal `json:"stock_buying_power"`
}

// APIError is a structured rejection from the brokerage. The retry controller
// branches on Code/Message, and the normalizer surfaces Raw verbatim so
// operators can inspect the original payload.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Raw        map[string]any
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("broker rejected request (%d, %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("broker rejected request (%d): %s", e.StatusCode, e.Message)
}
