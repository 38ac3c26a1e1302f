// Package codec programs the TAS571x codecs of the PiFi-40 board: the
// register sequences issued at bring-up and the per-codec stock controls.
package codec

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/micro-nova/pifi-go/internal/hardware"
)

// Write is one register assignment.
type Write struct {
	Reg   hardware.Register
	Value uint32
}

// Program is an ordered list of register writes for a single codec.
type Program []Write

// Apply issues every write in order. A failed write is logged and the
// program continues; Apply returns the number of failed writes.
func (p Program) Apply(ctx context.Context, c *hardware.Codec) int {
	failed := 0
	for _, w := range p {
		if err := c.Write(ctx, w.Reg, w.Value); err != nil {
			slog.Warn("codec: register write failed",
				"codec", c.String(),
				"reg", fmt.Sprintf("0x%02x", w.Reg),
				"value", fmt.Sprintf("0x%x", w.Value),
				"err", err)
			failed++
		}
	}
	return failed
}
