// Package hardware provides the register transport for the PiFi-40 board.
// It defines the Bus interface, the Codec handle used to address one TAS571x
// on that bus, and the fixed left/right codec Pair.
package hardware

import (
	"context"
	"fmt"
)

// Register is a TAS571x sub-address.
type Register = byte

// Bus executes register writes against a 7-bit I2C address.
// Implementations must be safe for concurrent use.
type Bus interface {
	// Write sends reg followed by data in a single bus transaction.
	Write(ctx context.Context, addr uint16, reg Register, data []byte) error
}

// Codec is a handle to one register-addressable TAS571x.
type Codec struct {
	name string
	addr uint16
	bus  Bus
}

// NewCodec returns a handle for the codec at addr on bus.
func NewCodec(name string, bus Bus, addr uint16) *Codec {
	return &Codec{name: name, addr: addr, bus: bus}
}

func (c *Codec) String() string {
	return fmt.Sprintf("%s@0x%02x", c.name, c.addr)
}

// Write writes val to reg, encoded at the register's native width.
func (c *Codec) Write(ctx context.Context, reg Register, val uint32) error {
	return c.bus.Write(ctx, c.addr, reg, EncodeRegister(reg, val))
}

// Channel indices into a Pair.
const (
	Left  = 0
	Right = 1
)

// Pair is the ordered left/right codec pair of one card.
type Pair [2]*Codec

// Complete reports whether both codecs were discovered.
func (p Pair) Complete() bool {
	return p[Left] != nil && p[Right] != nil
}

// HardwareError is returned when a bus transaction fails.
type HardwareError struct {
	msg string
}

func (e HardwareError) Error() string { return e.msg }

// ErrHardware creates a new hardware error.
func ErrHardware(msg string) error { return HardwareError{msg: msg} }
