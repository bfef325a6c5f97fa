package trading

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/amirphl/options-desk/internal/broker"
	"github.com/amirphl/options-desk/internal/order"
	"github.com/amirphl/options-desk/internal/position"
)

// PositionInfo is the position snapshot echoed back to the caller.
type PositionInfo struct {
	Qty  decimal.Decimal `json:"qty"`
	Side string          `json:"side"`
}

// Placed is the caller-facing shape of an accepted order.
type Placed struct {
	Success      bool          `json:"success"`
	Order        order.Record  `json:"order"`
	SmartSide    order.Side    `json:"smart_side"`
	OriginalSide order.Side    `json:"original_side"`
	PositionInfo *PositionInfo `json:"position_info"`
	Method       string        `json:"method"`
}

// FailureKind separates pre-remote validation failures from broker
// rejections so the HTTP layer can map status codes.
type FailureKind int

const (
	FailureValidation FailureKind = iota
	FailureRejection
)

// DebugInfo carries everything an operator needs to reconstruct the
// placement decision after the fact.
type DebugInfo struct {
	OrderData        map[string]any `json:"order_data"`
	SmartSide        order.Side     `json:"smart_side"`
	OriginalSide     order.Side     `json:"original_side"`
	ExistingPosition *PositionInfo  `json:"existing_position"`
	LookupDegraded   bool           `json:"position_lookup_degraded,omitempty"`
	Attempt          int            `json:"attempt"`
	Retried          bool           `json:"retried"`
	RetryMethod      string         `json:"retry_method,omitempty"`
}

// Failure is the caller-facing shape of a failed placement. The payload is
// deliberately rich: the UI surfaces it directly to a person making real
// trading decisions.
type Failure struct {
	Kind         FailureKind    `json:"-"`
	BrokerStatus int            `json:"-"`
	Success      bool           `json:"success"`
	Error        string         `json:"error"`
	Details      map[string]any `json:"details,omitempty"`
	DebugInfo    *DebugInfo     `json:"debug_info,omitempty"`
	Suggestions  []string       `json:"suggestions"`
}

// Static remediation hints attached to every fatal rejection.
var rejectionSuggestions = []string{
	"Verify the account has the option level and margin required for this order",
	"Close opposing positions or cancel open orders in this contract first",
	"If you are closing an existing position, send the explicit *_to_close side",
}

func validationFailure(err error) *Failure {
	return &Failure{
		Kind:        FailureValidation,
		Error:       err.Error(),
		Suggestions: []string{"Provide symbol, side, a positive integer quantity, and a positive price for limit orders"},
	}
}

func positionInfo(snap position.Snapshot) *PositionInfo {
	if !snap.Found {
		return nil
	}
	return &PositionInfo{Qty: snap.Position.Quantity, Side: snap.Position.Side}
}

// normalizeAccepted shapes a successful submission outcome.
func normalizeAccepted(record order.Record, intent order.Intent, req order.Request, snap position.Snapshot, method string) *Placed {
	return &Placed{
		Success:      true,
		Order:        record,
		SmartSide:    intent.Side,
		OriginalSide: req.Side,
		PositionInfo: positionInfo(snap),
		Method:       method,
	}
}

// normalizeRejected shapes the final rejection of a placement, carrying the
// raw broker payload and the full decision context.
func normalizeRejected(rej *rejection, params broker.OrderParams, intent order.Intent, req order.Request, snap position.Snapshot) *Failure {
	failure := &Failure{
		Kind:        FailureRejection,
		Error:       rej.err.Error(),
		Suggestions: rejectionSuggestions,
		DebugInfo: &DebugInfo{
			OrderData: map[string]any{
				"symbol":      params.Symbol,
				"side":        params.Side,
				"quantity":    params.Quantity,
				"type":        params.Type,
				"duration":    params.Duration,
				"order_class": params.OrderClass,
			},
			SmartSide:        intent.Side,
			OriginalSide:     req.Side,
			ExistingPosition: positionInfo(snap),
			LookupDegraded:   snap.Degraded,
			Attempt:          rej.attempt,
			Retried:          rej.retried,
			RetryMethod:      rej.method,
		},
	}
	if req.Type == order.Limit {
		failure.DebugInfo.OrderData["price"] = req.LimitPrice()
	}

	var apiErr *broker.APIError
	if errors.As(rej.err, &apiErr) {
		failure.BrokerStatus = apiErr.StatusCode
		failure.Details = apiErr.Raw
	}
	return failure
}
