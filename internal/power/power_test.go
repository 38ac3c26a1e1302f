package power_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/micro-nova/pifi-go/internal/hardware"
	"github.com/micro-nova/pifi-go/internal/power"
	"periph.io/x/conn/v3/gpio"
)

// recorder captures pin drives and sleeps in a single timeline.
type recorder struct {
	events []string
	levels []gpio.Level
	sleeps []time.Duration
	fail   bool
}

func (r *recorder) Out(l gpio.Level) error {
	if r.fail {
		return errors.New("pin stuck")
	}
	r.levels = append(r.levels, l)
	r.events = append(r.events, "drive:"+l.String())
	return nil
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.sleeps = append(r.sleeps, d)
	r.events = append(r.events, "sleep")
	return nil
}

func newSequencer(r *recorder) *power.Sequencer {
	return &power.Sequencer{Delay: hardware.Delay{Sleep: r.sleep}}
}

func TestSequencePower_NoLineIsNoOp(t *testing.T) {
	r := &recorder{}
	if err := newSequencer(r).SequencePower(context.Background(), power.None()); err != nil {
		t.Fatalf("SequencePower(None) = %v", err)
	}
	if len(r.events) != 0 {
		t.Errorf("events = %v, want none", r.events)
	}
}

func TestSequencePower_PulseOrder(t *testing.T) {
	r := &recorder{}
	if err := newSequencer(r).SequencePower(context.Background(), power.Some("GPIO4", r)); err != nil {
		t.Fatalf("SequencePower: %v", err)
	}

	want := []string{"drive:Low", "sleep", "drive:High", "sleep"}
	if len(r.events) != len(want) {
		t.Fatalf("events = %v, want %v", r.events, want)
	}
	for i := range want {
		if r.events[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, r.events[i], want[i])
		}
	}
	if r.levels[0] != power.Disabled || r.levels[1] != power.Enabled {
		t.Errorf("levels = %v, want [disabled enabled]", r.levels)
	}
}

func TestSequencePower_DelaysBounded(t *testing.T) {
	for i := 0; i < 200; i++ {
		r := &recorder{}
		if err := newSequencer(r).SequencePower(context.Background(), power.Some("GPIO4", r)); err != nil {
			t.Fatal(err)
		}
		if d := r.sleeps[0]; d < time.Millisecond || d > 10*time.Millisecond {
			t.Fatalf("pulse delay %v outside [1ms, 10ms]", d)
		}
		if d := r.sleeps[1]; d < 20*time.Millisecond || d > 30*time.Millisecond {
			t.Fatalf("wake-up delay %v outside [20ms, 30ms]", d)
		}
	}
}

func TestSequencePower_RealSleepTotal(t *testing.T) {
	r := &recorder{}
	seq := &power.Sequencer{}
	start := time.Now()
	if err := seq.SequencePower(context.Background(), power.Some("GPIO4", r)); err != nil {
		t.Fatal(err)
	}
	if el := time.Since(start); el < 21*time.Millisecond {
		t.Errorf("sequence took %v, want at least 21ms", el)
	}
}

func TestSequencePower_DriveFailure(t *testing.T) {
	r := &recorder{fail: true}
	err := newSequencer(r).SequencePower(context.Background(), power.Some("GPIO4", r))
	if !errors.Is(err, power.ErrLineDrive) {
		t.Errorf("error = %v, want ErrLineDrive", err)
	}
	if len(r.sleeps) != 2 {
		t.Errorf("slept %v, want both settle windows despite failed drives", r.sleeps)
	}
}

func TestSequencePower_CancelledSettle(t *testing.T) {
	r := &recorder{fail: true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	seq := &power.Sequencer{Delay: hardware.Delay{Sleep: hardware.SleepContext}}
	err := seq.SequencePower(ctx, power.Some("GPIO4", r))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if errors.Is(err, power.ErrLineDrive) {
		t.Error("cancellation reported as a line drive failure")
	}
}

func TestSetPower(t *testing.T) {
	r := &recorder{}
	seq := newSequencer(r)
	line := power.Some("GPIO4", r)

	if err := seq.SetPower(line, true); err != nil {
		t.Fatal(err)
	}
	if err := seq.SetPower(line, false); err != nil {
		t.Fatal(err)
	}
	if len(r.levels) != 2 || r.levels[0] != power.Enabled || r.levels[1] != power.Disabled {
		t.Errorf("levels = %v, want [High Low]", r.levels)
	}
	if len(r.sleeps) != 0 {
		t.Error("SetPower must not sleep")
	}
}

func TestSetPower_NoLine(t *testing.T) {
	r := &recorder{}
	if err := newSequencer(r).SetPower(power.None(), false); err != nil {
		t.Errorf("SetPower(None) = %v", err)
	}
	if len(r.events) != 0 {
		t.Errorf("events = %v, want none", r.events)
	}
}

func TestLineGet(t *testing.T) {
	if _, ok := power.None().Get(); ok {
		t.Error("None().Get() reported present")
	}
	var zero power.Line
	if _, ok := zero.Get(); ok {
		t.Error("zero Line reported present")
	}
	if _, ok := power.Some("GPIO4", &recorder{}).Get(); !ok {
		t.Error("Some().Get() reported absent")
	}
	if s := power.None().String(); s != "none" {
		t.Errorf("None().String() = %q", s)
	}
}

func TestOpenLine_EmptyName(t *testing.T) {
	line, err := power.OpenLine("")
	if err != nil {
		t.Fatalf("OpenLine(\"\") = %v", err)
	}
	if _, ok := line.Get(); ok {
		t.Error("empty name should yield an absent line")
	}
}
