// Package position
package position

import (
	"context"

	"github.com/amirphl/options-desk/internal/broker"
	"github.com/amirphl/options-desk/internal/order"
	"github.com/amirphl/options-desk/internal/utils"
)

// Snapshot is the result of a best-effort position read taken immediately
// before an order-side decision.
type Snapshot struct {
	Position order.Position
	Found    bool
	// Degraded is set when the remote read itself failed and the caller
	// should proceed as if flat. An incorrect "open" classification is
	// recoverable (the broker rejects invalid transitions); blocking all
	// orders on a transient read failure is not.
	Degraded bool
}

// Lookup reads positions from one broker, fresh on every call.
type Lookup struct {
	broker broker.Broker
}

func NewLookup(b broker.Broker) *Lookup {
	return &Lookup{broker: b}
}

// Current fetches the caller's net position in symbol. "No position" is a
// valid, expected outcome, not an error. A failed remote read degrades to
// flat with a warning rather than failing the placement.
func (l *Lookup) Current(ctx context.Context, symbol string) Snapshot {
	pos, found, err := l.broker.GetPosition(ctx, symbol)
	if err != nil {
		if broker.IsNotFound(err) {
			return Snapshot{}
		}
		utils.GetLogger().WithFields(map[string]any{
			"symbol": symbol,
			"broker": l.broker.Name(),
		}).Warnf("position lookup failed, assuming flat: %v", err)
		return Snapshot{Degraded: true}
	}
	if !found {
		return Snapshot{}
	}
	return Snapshot{Position: pos, Found: true}
}
