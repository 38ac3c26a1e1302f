package card_test

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/micro-nova/pifi-go/internal/card"
	"github.com/micro-nova/pifi-go/internal/codec"
	"github.com/micro-nova/pifi-go/internal/control"
	"github.com/micro-nova/pifi-go/internal/hardware"
	"github.com/micro-nova/pifi-go/internal/power"
	"periph.io/x/conn/v3/gpio"
)

const (
	leftAddr  = 0x1a
	rightAddr = 0x1b
)

type pin struct {
	mu     sync.Mutex
	levels []gpio.Level
}

func (p *pin) Out(l gpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.levels = append(p.levels, l)
	return nil
}

// stuckPin rejects every level change.
type stuckPin struct{ drives int }

func (p *stuckPin) Out(gpio.Level) error {
	p.drives++
	return syscall.EIO
}

func (p *pin) history() []gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]gpio.Level(nil), p.levels...)
}

// rejecting is a Platform that refuses every card.
type rejecting struct{ unregistered int }

func (r *rejecting) Register(*card.Card) error { return errors.New("duplicate card name") }
func (r *rejecting) Unregister(*card.Card)     { r.unregistered++ }

func noSleep(context.Context, time.Duration) error { return nil }

type fixture struct {
	bus      *hardware.Mock
	pin      *pin
	controls *control.Registry
	platform *card.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		bus:      hardware.NewMock(),
		pin:      &pin{},
		controls: control.NewRegistry("PiFi40", nil),
		platform: card.NewRegistry(),
	}
}

func (f *fixture) pair() hardware.Pair {
	return hardware.Pair{
		hardware.NewCodec("left", f.bus, leftAddr),
		hardware.NewCodec("right", f.bus, rightAddr),
	}
}

func (f *fixture) config(pair hardware.Pair, p card.Platform) card.Config {
	return card.Config{
		Name:     "PiFi40",
		Codecs:   pair,
		Line:     power.Some("GPIO4", f.pin),
		Controls: f.controls,
		Platform: p,
		Delay:    hardware.Delay{Sleep: noSleep},
	}
}

func (f *fixture) installStock(t *testing.T, pair hardware.Pair) {
	t.Helper()
	for i, ch := range control.Channels {
		if err := codec.RegisterStockControls(f.controls, ch, pair[i]); err != nil {
			t.Fatal(err)
		}
	}
}

func TestBringUp_Success(t *testing.T) {
	f := newFixture(t)
	pair := f.pair()
	f.installStock(t, pair)
	c := card.New(f.config(pair, f.platform))

	if err := c.BringUp(context.Background()); err != nil {
		t.Fatalf("BringUp: %v", err)
	}
	if st, err := c.State(); st != card.Registered || err != nil {
		t.Errorf("State() = %s, %v; want registered", st, err)
	}
	if _, ok := f.platform.Lookup("PiFi40"); !ok {
		t.Error("card not registered with platform")
	}

	levels := f.pin.history()
	if len(levels) != 2 || levels[0] != power.Disabled || levels[1] != power.Enabled {
		t.Errorf("line levels = %v, want [Low High]", levels)
	}

	list := f.controls.List()
	if len(list) != 1 || list[0].Name != control.MasterVolumeName {
		t.Errorf("controls = %v, want only the linked master volume", list)
	}
	if got := c.Volume().Get(); got[0] != control.DefaultVolume || got[1] != control.DefaultVolume {
		t.Errorf("initial linked volume = %v", got)
	}
	if v, _ := f.bus.GetReg(leftAddr, hardware.RegMasterVol); v != codec.InitialAtten {
		t.Errorf("left master vol = 0x%x, want initial attenuation", v)
	}
}

func TestBringUp_MissingCodec(t *testing.T) {
	for _, tc := range []struct {
		name string
		pair func(hardware.Pair) hardware.Pair
	}{
		{"left", func(p hardware.Pair) hardware.Pair { p[hardware.Left] = nil; return p }},
		{"right", func(p hardware.Pair) hardware.Pair { p[hardware.Right] = nil; return p }},
		{"both", func(hardware.Pair) hardware.Pair { return hardware.Pair{} }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			c := card.New(f.config(tc.pair(f.pair()), f.platform))

			err := c.BringUp(context.Background())
			if !errors.Is(err, card.ErrMissingCodec) {
				t.Fatalf("BringUp error = %v, want ErrMissingCodec", err)
			}
			if st, _ := c.State(); st != card.Failed {
				t.Errorf("State() = %s, want failed", st)
			}
			if n := len(f.bus.Writes()); n != 0 {
				t.Errorf("issued %d register writes, want 0", n)
			}
			if l := f.pin.history(); len(l) != 0 {
				t.Errorf("line driven %v, want untouched", l)
			}
			if _, ok := f.platform.Lookup("PiFi40"); ok {
				t.Error("card registered despite missing codec")
			}

			c.Close()
			if l := f.pin.history(); len(l) != 0 {
				t.Errorf("Close drove line %v after missing codec", l)
			}
		})
	}
}

func TestBringUp_LineDriveFailureStillRegisters(t *testing.T) {
	f := newFixture(t)
	pair := f.pair()
	f.installStock(t, pair)
	stuck := &stuckPin{}
	cfg := f.config(pair, f.platform)
	cfg.Line = power.Some("GPIO4", stuck)
	c := card.New(cfg)

	if err := c.BringUp(context.Background()); err != nil {
		t.Fatalf("BringUp with a stuck line: %v", err)
	}
	if st, err := c.State(); st != card.Registered || err != nil {
		t.Errorf("State() = %s, %v; want registered", st, err)
	}
	if _, ok := f.platform.Lookup("PiFi40"); !ok {
		t.Error("card not registered")
	}
	if stuck.drives != 2 {
		t.Errorf("line drive attempts = %d, want 2", stuck.drives)
	}
	if n := len(f.bus.Writes()); n != 12 {
		t.Errorf("issued %d mode writes, want 12", n)
	}
	if list := f.controls.List(); len(list) != 1 || list[0].Name != control.MasterVolumeName {
		t.Errorf("controls = %v, want only the linked master volume", list)
	}
}

func TestBringUp_CancelledDuringPowerSequence(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(f.pair(), f.platform)
	cfg.Delay = hardware.Delay{Sleep: hardware.SleepContext}
	c := card.New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.BringUp(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("BringUp error = %v, want context.Canceled", err)
	}
	if st, _ := c.State(); st != card.Failed {
		t.Errorf("State() = %s, want failed", st)
	}
	levels := f.pin.history()
	if len(levels) == 0 || levels[len(levels)-1] != power.Disabled {
		t.Errorf("line levels = %v, want ending disabled", levels)
	}
	if n := len(f.bus.Writes()); n != 0 {
		t.Errorf("issued %d register writes after cancellation, want 0", n)
	}
}

func TestBringUp_NoEnableLine(t *testing.T) {
	f := newFixture(t)
	cfg := f.config(f.pair(), f.platform)
	cfg.Line = power.None()
	c := card.New(cfg)

	if err := c.BringUp(context.Background()); err != nil {
		t.Fatalf("BringUp without line: %v", err)
	}
	if st, _ := c.State(); st != card.Registered {
		t.Errorf("State() = %s, want registered", st)
	}
	if n := len(f.bus.Writes()); n != 12 {
		t.Errorf("issued %d mode writes, want 12", n)
	}
}

func TestBringUp_RegistrationRejected(t *testing.T) {
	f := newFixture(t)
	pair := f.pair()
	f.installStock(t, pair)
	plat := &rejecting{}
	c := card.New(f.config(pair, plat))

	err := c.BringUp(context.Background())
	if !errors.Is(err, card.ErrRegistrationRejected) {
		t.Fatalf("BringUp error = %v, want ErrRegistrationRejected", err)
	}
	if st, _ := c.State(); st != card.Failed {
		t.Errorf("State() = %s, want failed", st)
	}

	levels := f.pin.history()
	if len(levels) == 0 || levels[len(levels)-1] != power.Disabled {
		t.Errorf("line levels = %v, want ending disabled", levels)
	}

	// Mode configuration is intentionally not reverted: only the rail is
	// forced off.
	for _, addr := range []uint16{leftAddr, rightAddr} {
		if v, ok := f.bus.GetReg(addr, hardware.RegPWMMux); !ok || v != codec.PWMMuxPBTL {
			t.Errorf("0x%02x PWM mux = 0x%x (%v), want PBTL left in place", addr, v, ok)
		}
		if v, ok := f.bus.GetReg(addr, hardware.RegMasterVol); !ok || v != codec.InitialAtten {
			t.Errorf("0x%02x master vol = 0x%x (%v), want initial attenuation left in place", addr, v, ok)
		}
	}
	if v, _ := f.bus.GetReg(leftAddr, hardware.RegInputMux); v != codec.InputMuxLeft {
		t.Errorf("left input mux = 0x%x, want left routing left in place", v)
	}

	if _, ok := f.controls.Find(control.MasterVolumeName); ok {
		t.Error("linked volume still installed after rejection")
	}
	if c.Volume() != nil {
		t.Error("Volume() non-nil after rejection")
	}

	// Close after a failed bring-up is safe and does not unregister.
	c.Close()
	if plat.unregistered != 0 {
		t.Errorf("Unregister called %d times for a rejected card", plat.unregistered)
	}
}

func TestBringUp_DuplicateCardName(t *testing.T) {
	f := newFixture(t)
	first := card.New(f.config(f.pair(), f.platform))
	if err := first.BringUp(context.Background()); err != nil {
		t.Fatal(err)
	}
	cfg := f.config(f.pair(), f.platform)
	cfg.Controls = control.NewRegistry("PiFi40", nil)
	second := card.New(cfg)
	if err := second.BringUp(context.Background()); !errors.Is(err, card.ErrRegistrationRejected) {
		t.Errorf("second BringUp error = %v, want ErrRegistrationRejected", err)
	}
	if c, _ := f.platform.Lookup("PiFi40"); c != first {
		t.Error("rejected card replaced the registered one")
	}
}

func TestBringUp_OnlyOnce(t *testing.T) {
	f := newFixture(t)
	c := card.New(f.config(f.pair(), f.platform))
	if err := c.BringUp(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.BringUp(context.Background()); err == nil {
		t.Error("second BringUp returned nil")
	}
}

func TestClose_DisablesLineAndUnregisters(t *testing.T) {
	f := newFixture(t)
	c := card.New(f.config(f.pair(), f.platform))
	if err := c.BringUp(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := f.controls.Set(ctx, control.MasterVolumeName, []int64{200, 200}); err != nil {
		t.Fatal(err)
	}

	c.Close()
	c.Close()

	levels := f.pin.history()
	if levels[len(levels)-1] != power.Disabled {
		t.Errorf("line levels = %v, want ending disabled", levels)
	}
	if n := len(levels); n != 3 {
		t.Errorf("line driven %d times, want 3 (pulse + one teardown)", n)
	}
	if _, ok := f.platform.Lookup("PiFi40"); ok {
		t.Error("card still registered after Close")
	}
	if _, err := f.controls.Set(ctx, control.MasterVolumeName, []int64{1}); !errors.Is(err, control.ErrClosed) {
		t.Errorf("Set after Close error = %v, want ErrClosed", err)
	}
}

func TestStateString(t *testing.T) {
	if s := card.ControlsConsolidated.String(); s != "controls_consolidated" {
		t.Errorf("String() = %q", s)
	}
}
