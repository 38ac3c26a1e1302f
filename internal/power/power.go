// Package power drives the PiFi-40 shared power-down (PDN) line.
package power

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/micro-nova/pifi-go/internal/hardware"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PDN is active low: driving the pin low holds both codecs powered down.
const (
	Disabled = gpio.Low
	Enabled  = gpio.High
)

// Settling windows around the PDN pulse.
const (
	pulseMin  = 1 * time.Millisecond
	pulseMax  = 10 * time.Millisecond
	wakeupMin = 20 * time.Millisecond
	wakeupMax = 30 * time.Millisecond
)

// ErrLineDrive is returned when the enable line rejects a level change.
var ErrLineDrive = errors.New("power: line drive failed")

// Pin is the output side of a GPIO. gpio.PinOut satisfies it.
type Pin interface {
	Out(l gpio.Level) error
}

// Line is an optional enable line. The zero value is an absent line.
type Line struct {
	name string
	pin  Pin
}

// Some wraps a present pin.
func Some(name string, pin Pin) Line {
	return Line{name: name, pin: pin}
}

// None returns an absent line.
func None() Line { return Line{} }

// Get returns the pin and whether the line is present.
func (l Line) Get() (Pin, bool) {
	return l.pin, l.pin != nil
}

func (l Line) String() string {
	if l.pin == nil {
		return "none"
	}
	return l.name
}

// OpenLine looks up a GPIO by its periph.io name. An empty name yields an
// absent line; a configured name that cannot be resolved is an error.
func OpenLine(name string) (Line, error) {
	if name == "" {
		return None(), nil
	}
	if _, err := host.Init(); err != nil {
		return None(), fmt.Errorf("gpio: host init failed: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return None(), fmt.Errorf("gpio: failed to open %s (PDN)", name)
	}
	return Some(name, pin), nil
}

// Sequencer pulses the enable line to reset both codecs.
type Sequencer struct {
	Delay hardware.Delay
}

// SequencePower holds the codecs in power-down for 1-10ms, releases them
// and waits 20-30ms for them to come up. An absent line is a no-op.
//
// A failed drive does not stop the sequence: every step still runs and
// the drive errors are returned joined, each wrapping ErrLineDrive. Only
// a cancelled settle aborts early.
func (s *Sequencer) SequencePower(ctx context.Context, line Line) error {
	pin, ok := line.Get()
	if !ok {
		slog.Debug("power: no enable line, skipping power sequence")
		return nil
	}
	var errs []error
	if err := drive(pin, line, Disabled); err != nil {
		errs = append(errs, err)
	}
	if err := s.Delay.Settle(ctx, pulseMin, pulseMax); err != nil {
		return err
	}
	if err := drive(pin, line, Enabled); err != nil {
		errs = append(errs, err)
	}
	if err := s.Delay.Settle(ctx, wakeupMin, wakeupMax); err != nil {
		return err
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	slog.Debug("power: codecs out of power-down", "line", line.String())
	return nil
}

// SetPower drives the line enabled when on, disabled otherwise.
// An absent line is a no-op.
func (s *Sequencer) SetPower(line Line, on bool) error {
	pin, ok := line.Get()
	if !ok {
		return nil
	}
	level := Disabled
	if on {
		level = Enabled
	}
	return drive(pin, line, level)
}

func drive(pin Pin, line Line, level gpio.Level) error {
	if err := pin.Out(level); err != nil {
		slog.Warn("power: failed to drive enable line", "line", line.String(), "level", level, "err", err)
		return fmt.Errorf("%w: %s to %s: %v", ErrLineDrive, line, level, err)
	}
	return nil
}

// LogPin is a Pin that only logs level changes, for running without GPIO.
type LogPin struct{}

func (LogPin) Out(l gpio.Level) error {
	slog.Debug("power: mock pin driven", "level", l)
	return nil
}
