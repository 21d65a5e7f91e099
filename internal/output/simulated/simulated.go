// Package simulated provides an alarm output that needs no hardware.
// It is used for dry runs and pcap replays on development machines.
package simulated

import (
	"context"
	"sync"

	"github.com/oshokin/wifi-sentinel/internal/logger"
)

// Output remembers its level and logs every transition at debug level.
type Output struct {
	//nolint:containedctx // Only carries the scoped logger.
	ctx context.Context
	mu  sync.Mutex
	on  bool
	// assertions counts low to high transitions.
	assertions int
}

// New creates a simulated output logging through the logger stored in ctx.
func New(ctx context.Context) *Output {
	return &Output{ctx: logger.WithName(ctx, "simulated-output")}
}

// Set records the new level.
func (o *Output) Set(on bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if on && !o.on {
		o.assertions++
	}

	o.on = on
	logger.DebugKV(o.ctx, "Output level changed", "on", on)

	return nil
}

// On reports the current level.
func (o *Output) On() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.on
}

// Assertions returns how many times the output went high.
func (o *Output) Assertions() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.assertions
}

// Close drives the output low.
func (o *Output) Close() error {
	return o.Set(false)
}
