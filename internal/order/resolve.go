package order

import "github.com/shopspring/decimal"

// Intent is a fully resolved order direction: the qualified side we track
// locally plus the primitive side the brokerage wire protocol accepts.
type Intent struct {
	Side Side
	Wire Side
}

// Resolve qualifies a requested side against the caller's current net
// position in the contract. Rules, in priority order:
//
//  1. Already-qualified sides pass through untouched.
//  2. sell with a long position closes it (sell_to_close).
//  3. buy with a short position closes it (buy_to_close).
//  4. sell otherwise opens a short (sell_to_open).
//  5. buy otherwise opens a long (buy_to_open).
//
// The mapping is total: every (side, quantity) pair yields exactly one
// intent, never an error. Callers that want the broker to arbitrate can
// always send a qualified side themselves.
func Resolve(requested Side, positionQty decimal.Decimal) Intent {
	if requested.Qualified() {
		return Intent{Side: requested, Wire: requested.Primitive()}
	}

	var resolved Side
	switch {
	case requested == Sell && positionQty.IsPositive():
		resolved = SellToClose
	case requested == Buy && positionQty.IsNegative():
		resolved = BuyToClose
	case requested == Sell:
		resolved = SellToOpen
	default:
		resolved = BuyToOpen
	}
	return Intent{Side: resolved, Wire: resolved.Primitive()}
}
