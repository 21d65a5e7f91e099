package actuator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/wifi-sentinel/internal/domain/detection"
	"github.com/oshokin/wifi-sentinel/internal/logger"
)

// DefaultPulseDuration is how long the output stays asserted per alarm.
const DefaultPulseDuration = time.Second

// Output is a single binary control point, e.g. a GPIO line with a buzzer.
type Output interface {
	// Set drives the output high when on is true and low otherwise.
	Set(on bool) error
}

// Alerter consumes detections. *Actuator is the production implementation.
type Alerter interface {
	Alert(ctx context.Context, d detection.Detection)
}

// errOutputRequired is returned when no output device is supplied.
var errOutputRequired = errors.New("output must be provided")

// Actuator serialises alarm pulses on one output.
type Actuator struct {
	// out is the controlled output; nothing else may drive it.
	out Output
	// pulseDuration is how long a pulse stays high.
	pulseDuration time.Duration
	// mu is held for the whole pulse, so pulses run one after another.
	mu sync.Mutex
	// active is set while the output is asserted.
	active atomic.Bool
	// pulses counts completed pulse attempts.
	pulses atomic.Uint64
	// failures counts pulses that reported an output error.
	failures atomic.Uint64
}

// Option configures an Actuator.
type Option func(*Actuator)

// WithPulseDuration overrides DefaultPulseDuration. Non-positive values are ignored.
func WithPulseDuration(d time.Duration) Option {
	return func(a *Actuator) {
		if d > 0 {
			a.pulseDuration = d
		}
	}
}

// New creates an Actuator that owns out.
func New(out Output, opts ...Option) (*Actuator, error) {
	if out == nil {
		return nil, errOutputRequired
	}

	a := &Actuator{
		out:           out,
		pulseDuration: DefaultPulseDuration,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Alert logs the detection and sounds one pulse.
// Output failures are logged and never stop the caller.
func (a *Actuator) Alert(ctx context.Context, d detection.Detection) {
	logger.InfoKV(ctx, d.String(),
		"kind", d.Kind.String(),
		"mac", d.MAC.String(),
		"channel", d.Channel,
	)

	if err := a.pulse(); err != nil {
		logger.ErrorKV(ctx, "Alarm pulse failed", "kind", d.Kind.String(), "error", err)
	}
}

// BootChime sounds one pulse to confirm the output is wired correctly.
// Unlike Alert it returns the error, so callers can abort start-up.
func (a *Actuator) BootChime(ctx context.Context) error {
	logger.Info(ctx, "Sounding boot chime")

	if err := a.pulse(); err != nil {
		return fmt.Errorf("boot chime: %w", err)
	}

	return nil
}

// Active reports whether a pulse is currently asserted.
func (a *Actuator) Active() bool {
	return a.active.Load()
}

// Pulses returns the number of pulses attempted so far.
func (a *Actuator) Pulses() uint64 {
	return a.pulses.Load()
}

// Failures returns the number of pulses that hit an output error.
func (a *Actuator) Failures() uint64 {
	return a.failures.Load()
}

// Release drives the output low. Used on shutdown; waits for a running pulse.
func (a *Actuator) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.out.Set(false); err != nil {
		return fmt.Errorf("release output: %w", err)
	}

	return nil
}

// pulse drives the output high, holds it, then drives it low.
// The low transition is attempted even when going high failed.
func (a *Actuator) pulse() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pulses.Add(1)

	var highErr error
	if highErr = a.out.Set(true); highErr == nil {
		a.active.Store(true)
		time.Sleep(a.pulseDuration)
	} else {
		highErr = fmt.Errorf("assert output: %w", highErr)
	}

	lowErr := a.out.Set(false)
	a.active.Store(false)

	if lowErr != nil {
		lowErr = fmt.Errorf("deassert output: %w", lowErr)
	}

	if err := errors.Join(highErr, lowErr); err != nil {
		a.failures.Add(1)

		return err
	}

	return nil
}
