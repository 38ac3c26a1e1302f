package hardware

import (
	"context"
	"fmt"
	"sync"
)

// WriteOp is one register write observed by a Mock.
type WriteOp struct {
	Addr  uint16
	Reg   Register
	Value uint32
}

func (w WriteOp) String() string {
	return fmt.Sprintf("0x%02x[0x%02x]=0x%x", w.Addr, w.Reg, w.Value)
}

// Mock is a thread-safe in-memory Bus for testing and development.
// It records every write in order and keeps the last value per register.
type Mock struct {
	mu        sync.Mutex
	regs      map[uint16]map[Register]uint32
	log       []WriteOp
	failWrite bool
	failAddr  map[uint16]bool
}

// NewMock creates an empty mock bus.
func NewMock() *Mock {
	return &Mock{
		regs:     make(map[uint16]map[Register]uint32),
		failAddr: make(map[uint16]bool),
	}
}

// SetFailWrite configures the mock to fail all write operations.
func (m *Mock) SetFailWrite(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = fail
}

// SetFailAddr configures the mock to fail writes to a single address.
func (m *Mock) SetFailAddr(addr uint16, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAddr[addr] = fail
}

// Write records the transaction. Failed writes are logged but not stored.
func (m *Mock) Write(ctx context.Context, addr uint16, reg Register, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	op := WriteOp{Addr: addr, Reg: reg, Value: DecodeRegister(data)}
	m.log = append(m.log, op)
	if m.failWrite || m.failAddr[addr] {
		return ErrHardware(fmt.Sprintf("mock: write failure configured for 0x%02x", addr))
	}
	if _, ok := m.regs[addr]; !ok {
		m.regs[addr] = make(map[Register]uint32)
	}
	m.regs[addr][reg] = op.Value
	return nil
}

// Writes returns a copy of every attempted write, in issue order.
func (m *Mock) Writes() []WriteOp {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WriteOp, len(m.log))
	copy(out, m.log)
	return out
}

// Reset clears the write log but keeps register contents.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = nil
}

// GetReg returns a register value for testing purposes.
func (m *Mock) GetReg(addr uint16, reg Register) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.regs[addr][reg]
	return v, ok
}

var _ Bus = (*Mock)(nil)
