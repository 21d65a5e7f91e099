package actuator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/wifi-sentinel/internal/domain/detection"
)

const testPulse = 15 * time.Millisecond

var errTestOutput = errors.New("test output failure")

// transition is one recorded Set call.
type transition struct {
	on bool
	at time.Time
}

// recordingOutput is an Output that records every transition and counts overlaps.
type recordingOutput struct {
	mu          sync.Mutex
	high        bool
	overlaps    int
	transitions []transition
	// failHigh makes Set(true) return an error.
	failHigh bool
	// failLow makes Set(false) return an error.
	failLow bool
}

// Set records the transition and flags a second assert while already high.
func (o *recordingOutput) Set(on bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if on && o.failHigh {
		return errTestOutput
	}

	if !on && o.failLow {
		return errTestOutput
	}

	if on && o.high {
		o.overlaps++
	}

	o.high = on
	o.transitions = append(o.transitions, transition{on: on, at: time.Now()})

	return nil
}

func (o *recordingOutput) snapshot() ([]transition, int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	return append([]transition(nil), o.transitions...), o.overlaps
}

func newTestActuator(t *testing.T, out Output) *Actuator {
	t.Helper()

	a, err := New(out, WithPulseDuration(testPulse))
	require.NoError(t, err)

	return a
}

// TestNew_RequiresOutput asserts a nil output is rejected.
func TestNew_RequiresOutput(t *testing.T) {
	t.Parallel()

	a, err := New(nil)
	require.Error(t, err)
	require.Nil(t, a)
}

// TestNew_DefaultPulse checks the production pulse length.
func TestNew_DefaultPulse(t *testing.T) {
	t.Parallel()

	a, err := New(new(recordingOutput))
	require.NoError(t, err)
	require.Equal(t, time.Second, a.pulseDuration)

	a, err = New(new(recordingOutput), WithPulseDuration(0))
	require.NoError(t, err)
	require.Equal(t, DefaultPulseDuration, a.pulseDuration)
}

// TestAlert_SinglePulse verifies a high then low transition held for the pulse duration.
func TestAlert_SinglePulse(t *testing.T) {
	t.Parallel()

	out := new(recordingOutput)
	a := newTestActuator(t, out)

	a.Alert(context.Background(), detection.Detection{Kind: detection.DeauthFlood, Channel: 6})

	transitions, overlaps := out.snapshot()
	require.Len(t, transitions, 2)
	require.True(t, transitions[0].on)
	require.False(t, transitions[1].on)
	require.GreaterOrEqual(t, transitions[1].at.Sub(transitions[0].at), testPulse)
	require.Zero(t, overlaps)
	require.False(t, a.Active())
	require.Equal(t, uint64(1), a.Pulses())
}

// TestAlert_ConcurrentCallsNeverOverlap fires many alerts at once and checks pulses are serialised.
func TestAlert_ConcurrentCallsNeverOverlap(t *testing.T) {
	t.Parallel()

	const callers = 6

	out := new(recordingOutput)
	a := newTestActuator(t, out)

	var wg sync.WaitGroup

	for i := range callers {
		wg.Add(1)

		go func(channel uint16) {
			defer wg.Done()

			a.Alert(context.Background(), detection.Detection{Kind: detection.PixieDust, Channel: channel})
		}(uint16(i + 1))
	}

	wg.Wait()

	transitions, overlaps := out.snapshot()
	require.Zero(t, overlaps)
	require.Len(t, transitions, 2*callers)

	// Strict alternation means at most one pulse is active at any time.
	for i, tr := range transitions {
		require.Equal(t, i%2 == 0, tr.on, "transition %d", i)

		if i > 0 {
			require.False(t, tr.at.Before(transitions[i-1].at))
		}
	}

	require.Equal(t, uint64(callers), a.Pulses())
}

// TestAlert_BlocksForPulse checks the caller waits for the whole pulse.
func TestAlert_BlocksForPulse(t *testing.T) {
	t.Parallel()

	a := newTestActuator(t, new(recordingOutput))

	start := time.Now()

	a.Alert(context.Background(), detection.Detection{Kind: detection.DeauthFlood})
	a.Alert(context.Background(), detection.Detection{Kind: detection.DeauthFlood})

	require.GreaterOrEqual(t, time.Since(start), 2*testPulse)
}

// TestAlert_FailureIsNotFatal asserts output errors are counted and swallowed.
func TestAlert_FailureIsNotFatal(t *testing.T) {
	t.Parallel()

	out := &recordingOutput{failHigh: true}
	a := newTestActuator(t, out)

	require.NotPanics(t, func() {
		a.Alert(context.Background(), detection.Detection{Kind: detection.DeauthFlood})
	})

	// Output was still driven low after the failed assert.
	transitions, _ := out.snapshot()
	require.Len(t, transitions, 1)
	require.False(t, transitions[0].on)
	require.Equal(t, uint64(1), a.Failures())
	require.False(t, a.Active())
}

// TestBootChime covers the success path and both failure directions.
func TestBootChime(t *testing.T) {
	t.Parallel()

	out := new(recordingOutput)
	require.NoError(t, newTestActuator(t, out).BootChime(context.Background()))

	transitions, _ := out.snapshot()
	require.Len(t, transitions, 2)

	err := newTestActuator(t, &recordingOutput{failHigh: true}).BootChime(context.Background())
	require.ErrorIs(t, err, errTestOutput)

	err = newTestActuator(t, &recordingOutput{failLow: true}).BootChime(context.Background())
	require.ErrorIs(t, err, errTestOutput)
	require.ErrorContains(t, err, "deassert")
}

// TestActive reports true only while the output is asserted.
func TestActive(t *testing.T) {
	t.Parallel()

	a := newTestActuator(t, new(recordingOutput))
	a.pulseDuration = 100 * time.Millisecond

	done := make(chan struct{})

	go func() {
		defer close(done)

		a.Alert(context.Background(), detection.Detection{Kind: detection.DeauthFlood})
	}()

	require.Eventually(t, a.Active, time.Second, time.Millisecond)
	<-done
	require.False(t, a.Active())
}

// TestRelease drives the output low.
func TestRelease(t *testing.T) {
	t.Parallel()

	out := new(recordingOutput)
	a := newTestActuator(t, out)

	require.NoError(t, a.Release())

	transitions, _ := out.snapshot()
	require.Len(t, transitions, 1)
	require.False(t, transitions[0].on)

	require.ErrorIs(t, newTestActuator(t, &recordingOutput{failLow: true}).Release(), errTestOutput)
}
