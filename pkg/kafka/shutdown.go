package _kafka

import "sync/atomic"

// ShutdownGate is an idempotent flag plus end-signal propagation to the
// PartitionHub (§4.7 / §4.6.6). Trigger may be called from any
// goroutine (it is what GracefulShutdown calls); only the first call
// has any effect.
type ShutdownGate struct {
	flag atomic.Bool
	hub  *PartitionHub
}

// NewShutdownGate ties a gate to the hub it must end on first trigger.
func NewShutdownGate(hub *PartitionHub) *ShutdownGate {
	return &ShutdownGate{hub: hub}
}

// Trigger requests shutdown. Idempotent.
func (g *ShutdownGate) Trigger() {
	if g.flag.CompareAndSwap(false, true) {
		g.hub.End()
	}
}

// IsSet reports whether shutdown has been triggered.
func (g *ShutdownGate) IsSet() bool {
	return g.flag.Load()
}
