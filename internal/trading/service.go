// Package trading implements order placement against the remote brokerage:
// best-effort position lookup, order-side resolution, the conflict-tolerant
// submission retry, and normalization of the outcome for the HTTP layer.
package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amirphl/options-desk/internal/broker"
	"github.com/amirphl/options-desk/internal/metrics"
	"github.com/amirphl/options-desk/internal/notifier"
	"github.com/amirphl/options-desk/internal/order"
	"github.com/amirphl/options-desk/internal/position"
	"github.com/amirphl/options-desk/internal/state"
	"github.com/amirphl/options-desk/internal/utils"
)

// DefaultRetryDelay is the fixed pause before the single permitted
// resubmission. Short by design: the wash-trade guard is assumed to be a
// timing artifact.
const DefaultRetryDelay = 75 * time.Millisecond

// Service routes order placement and account queries to the broker selected
// by the current trading mode. It holds no state of its own beyond the mode:
// each placement performs its own read, decision, submit, and optional retry
// sequentially within one call.
type Service struct {
	brokers    map[state.Mode]broker.Broker
	mode       *state.ModeHolder
	notifier   notifier.Notifier
	retryDelay time.Duration
}

func New(brokers map[state.Mode]broker.Broker, mode *state.ModeHolder, n notifier.Notifier, retryDelay time.Duration) *Service {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	if n == nil {
		n = notifier.Noop{}
	}
	return &Service{
		brokers:    brokers,
		mode:       mode,
		notifier:   n,
		retryDelay: retryDelay,
	}
}

// Mode returns the current trading mode.
func (s *Service) Mode() state.Mode {
	return s.mode.Current()
}

// SwitchMode changes the trading mode for subsequent requests.
func (s *Service) SwitchMode(m state.Mode) error {
	if _, ok := s.brokers[m]; !ok {
		return fmt.Errorf("no broker configured for mode %q", string(m))
	}
	if err := s.mode.Switch(m); err != nil {
		return err
	}
	utils.GetLogger().Infof("trading mode switched to %s", m)
	s.notifier.SendWithRetry("Trading mode switched to " + string(m))
	return nil
}

// Broker returns the broker for the current mode, snapshotted once per call.
func (s *Service) Broker() broker.Broker {
	return s.brokers[s.mode.Current()]
}

// PlaceOrder runs the full placement pipeline for one options order:
// validate, read the current position, resolve the order side, submit with
// the bounded retry, and normalize the outcome. Exactly one of the returns is
// non-nil.
func (s *Service) PlaceOrder(ctx context.Context, req order.Request) (*Placed, *Failure) {
	if err := req.Validate(); err != nil {
		return nil, validationFailure(err)
	}

	// Mode and broker are snapshotted here; a concurrent mode switch only
	// affects later requests.
	mode := s.mode.Current()
	b := s.brokers[mode]
	log := utils.GetLogger().WithFields(map[string]any{
		"symbol": req.Symbol,
		"side":   req.Side,
		"mode":   mode,
	})

	snap := position.NewLookup(b).Current(ctx, req.Symbol)
	if snap.Degraded {
		metrics.PositionLookupDegraded()
	}

	intent := order.Resolve(req.Side, snap.Position.Quantity)
	log.Infof("resolved side %s -> %s (position %s)", req.Side, intent.Side, order.SideLabel(snap.Position.Quantity))

	params := broker.OrderParams{
		Symbol:   req.Symbol,
		Side:     intent.Wire,
		Quantity: req.Quantity.IntPart(),
		Type:     req.Type,
		Duration: "day",
		Tag:      "desk-" + uuid.NewString()[:8],
	}
	if req.Type == order.Limit {
		params.Price = req.LimitPrice()
	}

	record, method, rej := s.submitWithRetry(ctx, b, params)
	if rej != nil {
		reason := rejectionReason(rej.err)
		metrics.OrderRejected(string(mode), reason)
		log.Errorf("order rejected (attempt %d, reason %s): %v", rej.attempt, reason, rej.err)
		s.notifier.SendWithRetry("Order rejected for " + req.Symbol + ": " + rej.err.Error())
		return nil, normalizeRejected(rej, params, intent, req, snap)
	}

	metrics.OrderAccepted(string(mode), string(intent.Side))
	log.Infof("order %s accepted (%s)", record.ID, method)
	return normalizeAccepted(record, intent, req, snap, method), nil
}
