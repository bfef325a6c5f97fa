// Package state
package state

import (
	"fmt"
	"sync/atomic"
)

// Mode selects whether orders route to the simulated or the real brokerage
// account.
type Mode string

const (
	Paper Mode = "paper"
	Live  Mode = "live"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Paper, Live:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid trading mode %q (want paper or live)", s)
}

// ModeHolder is the process-wide trading mode. Each request snapshots the
// mode once at its start; a switch affects only subsequent requests, never
// in-flight ones, and concurrent requests can never observe a torn read.
type ModeHolder struct {
	v atomic.Value
}

func NewModeHolder(initial Mode) *ModeHolder {
	h := &ModeHolder{}
	h.v.Store(initial)
	return h
}

func (h *ModeHolder) Current() Mode {
	return h.v.Load().(Mode)
}

func (h *ModeHolder) Switch(m Mode) error {
	if m != Paper && m != Live {
		return fmt.Errorf("invalid trading mode %q", string(m))
	}
	h.v.Store(m)
	return nil
}
