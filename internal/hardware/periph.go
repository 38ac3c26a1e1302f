package hardware

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// PeriphBus is a Bus backed by a periph.io I2C bus.
type PeriphBus struct {
	mu      sync.Mutex
	bus     i2c.BusCloser
	limiter *rate.Limiter
}

// OpenPeriph opens the named periph.io bus ("" selects the first one, "1"
// selects /dev/i2c-1 on a Raspberry Pi).
func OpenPeriph(name string, opsPerSec int) (*PeriphBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("i2c: periph host init: %w", err)
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2c: open bus %q: %w", name, err)
	}
	return &PeriphBus{bus: b, limiter: newLimiter(opsPerSec)}, nil
}

func (p *PeriphBus) Write(ctx context.Context, addr uint16, reg Register, data []byte) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	w := make([]byte, 0, 1+len(data))
	w = append(w, reg)
	w = append(w, data...)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.bus.Tx(addr, w, nil); err != nil {
		return fmt.Errorf("i2c: %s write 0x%02x reg=0x%02x: %w", p.bus, addr, reg, err)
	}
	return nil
}

// Close releases the underlying bus.
func (p *PeriphBus) Close() error {
	return p.bus.Close()
}

func (p *PeriphBus) String() string { return p.bus.String() }

func newLimiter(opsPerSec int) *rate.Limiter {
	if opsPerSec <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(opsPerSec), 10)
}

var _ Bus = (*PeriphBus)(nil)
