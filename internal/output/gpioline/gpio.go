// Package gpioline drives the alarm buzzer through a periph.io GPIO line.
package gpioline

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// DefaultPin is the buzzer line of the reference board.
const DefaultPin = "GPIO2"

var (
	// errPinRequired is returned when no pin is supplied.
	errPinRequired = errors.New("gpio pin must be provided")
	// errPinNotFound is returned when the pin name is unknown to the host.
	errPinNotFound = errors.New("gpio pin not found")
)

//nolint:gochecknoglobals // Host drivers are process-wide in periph.
var initHost = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// Output is a binary output backed by one GPIO line.
type Output struct {
	pin gpio.PinOut
}

// Open initialises the host drivers, resolves name and drives the line low.
func Open(name string) (*Output, error) {
	if name == "" {
		name = DefaultPin
	}

	if err := initHost(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %s", errPinNotFound, name)
	}

	return New(pin)
}

// New wraps an already resolved pin and drives it low.
func New(pin gpio.PinOut) (*Output, error) {
	if pin == nil {
		return nil, errPinRequired
	}

	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("configure %s as output: %w", pin.Name(), err)
	}

	return &Output{pin: pin}, nil
}

// Set drives the line high when on is true and low otherwise.
func (o *Output) Set(on bool) error {
	level := gpio.Low
	if on {
		level = gpio.High
	}

	if err := o.pin.Out(level); err != nil {
		return fmt.Errorf("drive %s %s: %w", o.pin.Name(), level, err)
	}

	return nil
}

// Name returns the pin name.
func (o *Output) Name() string {
	return o.pin.Name()
}

// Close drives the line low and halts the pin.
func (o *Output) Close() error {
	return errors.Join(o.Set(false), o.pin.Halt())
}
