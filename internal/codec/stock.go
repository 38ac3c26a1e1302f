package codec

import (
	"context"
	"fmt"
	"sync"

	"github.com/micro-nova/pifi-go/internal/control"
	"github.com/micro-nova/pifi-go/internal/hardware"
)

// volumeScale is the TAS5711 volume TLV: -103.5dB in 0.5dB steps.
var volumeScale = &control.DBScale{MinCentiDB: -10350, StepCentiDB: 50, MuteAtMin: true}

// RegisterStockControls installs the controls a TAS571x exposes on its
// own, prefixed with the codec's channel ("Left Master Volume", ...).
// Values are cached since the bus is write-only.
func RegisterStockControls(reg *control.Registry, ch control.Channel, c *hardware.Codec) error {
	stock := []struct {
		kind    control.Kind
		desc    control.Descriptor
		handler control.Handler
	}{
		{
			kind:    control.MasterVolume,
			desc:    control.Descriptor{Count: 1, Max: 255, Invert: true, Scale: volumeScale},
			handler: &regControl{codec: c, vals: []int64{0}, write: writeInverted(hardware.RegMasterVol)},
		},
		{
			kind:    control.SpeakerVolume,
			desc:    control.Descriptor{Count: 2, Max: 255, Invert: true, Scale: volumeScale},
			handler: &regControl{codec: c, vals: []int64{0, 0}, write: writeInverted(hardware.RegCh1Vol, hardware.RegCh2Vol)},
		},
		{
			kind:    control.SpeakerSwitch,
			desc:    control.Descriptor{Count: 2, Max: 1, Invert: true},
			handler: &regControl{codec: c, vals: []int64{1, 1}, write: writeSoftMute},
		},
	}
	for _, s := range stock {
		s.desc.Name = control.Key{Channel: ch, Kind: s.kind}.Name()
		if _, err := reg.Install(s.desc, s.handler); err != nil {
			return fmt.Errorf("codec: install %q: %w", s.desc.Name, err)
		}
	}
	return nil
}

// regControl is a cached, register-backed control on a single codec.
type regControl struct {
	mu    sync.Mutex
	codec *hardware.Codec
	vals  []int64
	write func(ctx context.Context, c *hardware.Codec, vals []int64) error
}

func (r *regControl) Get() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.vals...)
}

func (r *regControl) Set(ctx context.Context, vals []int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	same := true
	for i := range vals {
		if vals[i] != r.vals[i] {
			same = false
		}
	}
	if same {
		return false, nil
	}
	if err := r.write(ctx, r.codec, vals); err != nil {
		return false, err
	}
	r.vals = append([]int64(nil), vals...)
	return true, nil
}

// writeInverted writes 255 - vals[i] to regs[i].
func writeInverted(regs ...hardware.Register) func(context.Context, *hardware.Codec, []int64) error {
	return func(ctx context.Context, c *hardware.Codec, vals []int64) error {
		for i, reg := range regs {
			if err := c.Write(ctx, reg, uint32(255-vals[i])); err != nil {
				return err
			}
		}
		return nil
	}
}

// writeSoftMute sets the mute bit of every channel whose switch is off.
func writeSoftMute(ctx context.Context, c *hardware.Codec, vals []int64) error {
	var mute uint32
	for i, on := range vals {
		if on == 0 {
			mute |= 1 << uint(i)
		}
	}
	return c.Write(ctx, hardware.RegSoftMute, mute)
}
