//go:build linux

package hardware

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

const (
	i2cRdwrIOCTL = 0x0707 // I2C_RDWR ioctl
	maxPayload   = 4
)

// i2cMsg mirrors struct i2c_msg from linux/i2c.h
type i2cMsg struct {
	addr   uint16
	flags  uint16
	length uint16
	_pad   uint16 // struct alignment
	buf    uintptr
}

// i2cRdwr mirrors struct i2c_rdwr_ioctl_data from linux/i2c-dev.h
type i2cRdwr struct {
	msgs  uintptr
	nmsgs uint32
}

// I2CDev is a Bus backed by a Linux /dev/i2c-N character device.
// Every write is a single I2C_RDWR message so the codec sees one
// START..STOP per register.
type I2CDev struct {
	mu      sync.Mutex
	path    string
	fd      int
	limiter *rate.Limiter
}

// OpenI2CDev opens path (e.g. "/dev/i2c-1"). opsPerSec bounds the
// transaction rate; zero disables limiting.
func OpenI2CDev(path string, opsPerSec int) (*I2CDev, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("i2c: open %s: %w", path, err)
	}
	return &I2CDev{path: path, fd: fd, limiter: newLimiter(opsPerSec)}, nil
}

func (d *I2CDev) Write(ctx context.Context, addr uint16, reg Register, data []byte) error {
	if len(data) > maxPayload {
		return fmt.Errorf("i2c: payload of %d bytes exceeds %d", len(data), maxPayload)
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return fmt.Errorf("i2c: %s closed", d.path)
	}

	var wbuf [1 + maxPayload]byte
	wbuf[0] = reg
	n := copy(wbuf[1:], data) + 1
	msgs := [1]i2cMsg{
		{addr: addr, flags: 0, length: uint16(n), buf: uintptr(unsafe.Pointer(&wbuf[0]))},
	}
	rdwr := i2cRdwr{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: 1}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), i2cRdwrIOCTL, uintptr(unsafe.Pointer(&rdwr))); errno != 0 {
		return fmt.Errorf("i2c: I2C_RDWR write 0x%02x reg=0x%02x: %w", addr, reg, errno)
	}
	return nil
}

// Close releases the file descriptor.
func (d *I2CDev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}

func (d *I2CDev) String() string { return d.path }

var _ Bus = (*I2CDev)(nil)
