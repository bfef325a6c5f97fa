package trading

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/amirphl/options-desk/internal/broker"
	"github.com/amirphl/options-desk/internal/metrics"
	"github.com/amirphl/options-desk/internal/order"
	"github.com/amirphl/options-desk/internal/utils"
)

// Submission methods reported back to the caller.
const (
	MethodInitial          = "initial"
	MethodRetryWashTrade   = "retry_after_wash_trade"
	MethodRetrySimpleClass = "retry_with_simple_class"
)

// Rejection reason labels for metrics and debug output.
const (
	reasonFatal             = "fatal"
	reasonTransport         = "transport"
	reasonWashTrade         = "wash_trade"
	reasonLongShortConflict = "long_short_conflict"
)

// rejectionSignature is one known transient rejection. Signatures are matched
// against the broker's structured error code first; the substring match is a
// documented last resort, since the patterns were reverse-engineered from
// observed broker behavior, not a contract.
type rejectionSignature struct {
	reason    string
	code      string
	substring string
	method    string
	// adjust mutates the order body for the second attempt.
	adjust func(*broker.OrderParams)
}

var retryableSignatures = []rejectionSignature{
	{
		// Wash-trade detection is assumed to be a timing artifact, not a
		// structural one: the identical body is resubmitted unchanged.
		reason:    reasonWashTrade,
		code:      "wash_trade",
		substring: "potential wash trade detected",
		method:    MethodRetryWashTrade,
		adjust:    func(*broker.OrderParams) {},
	},
	{
		// Long/short conflict guard: retry with an explicit simple order
		// class, attempting to route around the broker-side position check.
		reason:    reasonLongShortConflict,
		code:      "position_conflict",
		substring: "cannot open a short sell while a long buy order is open",
		method:    MethodRetrySimpleClass,
		adjust: func(p *broker.OrderParams) {
			p.OrderClass = "simple"
		},
	},
}

// classifyRejection matches err against the known transient signatures.
// Anything else, including transport errors, is fatal for this placement.
func classifyRejection(err error) (rejectionSignature, bool) {
	var apiErr *broker.APIError
	if !errors.As(err, &apiErr) {
		return rejectionSignature{}, false
	}
	for _, sig := range retryableSignatures {
		if apiErr.Code != "" && apiErr.Code == sig.code {
			return sig, true
		}
		if strings.Contains(strings.ToLower(apiErr.Message), sig.substring) {
			return sig, true
		}
	}
	return rejectionSignature{}, false
}

// rejectionReason labels err for metrics and debug output.
func rejectionReason(err error) string {
	var apiErr *broker.APIError
	if !errors.As(err, &apiErr) {
		return reasonTransport
	}
	if sig, ok := classifyRejection(err); ok {
		return sig.reason
	}
	return reasonFatal
}

// rejection is the final failed outcome of a placement, tagged with which
// attempt produced it so the normalizer can report both the root cause and
// that a retry happened.
type rejection struct {
	attempt int
	retried bool
	method  string
	err     error
}

// submitWithRetry runs the bounded submission state machine: one live
// attempt, and on a known transient rejection exactly one more with the
// adjusted body after a fixed short delay. Attempts are strictly serial; an
// accepted order is never resubmitted, and the retry never starts before the
// first attempt's outcome is fully known.
func (s *Service) submitWithRetry(ctx context.Context, b broker.Broker, params broker.OrderParams) (order.Record, string, *rejection) {
	record, err := b.CreateOrder(ctx, params)
	if err == nil {
		return record, MethodInitial, nil
	}

	sig, retryable := classifyRejection(err)
	if !retryable {
		return order.Record{}, "", &rejection{attempt: 1, err: err}
	}

	utils.GetLogger().WithFields(map[string]any{
		"symbol": params.Symbol,
		"side":   params.Side,
		"reason": sig.reason,
	}).Warnf("order rejected, retrying once (%s): %v", sig.method, err)
	metrics.RetryAttempted(sig.method)

	retryParams := params
	sig.adjust(&retryParams)

	select {
	case <-ctx.Done():
		return order.Record{}, "", &rejection{attempt: 1, err: ctx.Err()}
	case <-time.After(s.retryDelay):
	}

	record, retryErr := b.CreateOrder(ctx, retryParams)
	if retryErr == nil {
		return record, sig.method, nil
	}
	return order.Record{}, "", &rejection{attempt: 2, retried: true, method: sig.method, err: retryErr}
}
