package control

import (
	"context"
	"log/slog"
	"sync"

	"github.com/micro-nova/pifi-go/internal/hardware"
)

// DefaultVolume is the linked volume before the first write.
const DefaultVolume = 0x30

// MasterVolumeName is the display name of the linked control.
const MasterVolumeName = "Master Volume"

// MasterVolumeDescriptor is the metadata of the linked control: 0..255,
// complement of the TAS571x attenuation code, -103.5dB in 0.5dB steps.
var MasterVolumeDescriptor = Descriptor{
	Name:   MasterVolumeName,
	Count:  2,
	Min:    0,
	Max:    255,
	Step:   1,
	Invert: true,
	Scale:  &DBScale{MinCentiDB: -10350, StepCentiDB: 50, MuteAtMin: true},
	Access: ReadWrite,
}

// Volume is the linked master volume of one card. Both codecs always
// carry 255 - v in their master volume register after a completed Set.
type Volume struct {
	mu     sync.Mutex
	codecs hardware.Pair
	vol    uint8
}

// NewVolume returns a linked volume at DefaultVolume. Nothing is written
// to the codecs until the first Set.
func NewVolume(codecs hardware.Pair) *Volume {
	return &Volume{codecs: codecs, vol: DefaultVolume}
}

// Get returns the logical volume on both channels.
func (v *Volume) Get() []int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return []int64{int64(v.vol), int64(v.vol)}
}

// Set writes the complement of values[0] to the left then the right codec
// and commits it. Write failures are logged; the value is committed and
// reported as changed regardless. Both writes are always attempted, even
// when ctx is cancelled part way.
func (v *Volume) Set(ctx context.Context, values []int64) (bool, error) {
	ctx = context.WithoutCancel(ctx)
	val := uint8(values[0])
	v.mu.Lock()
	defer v.mu.Unlock()
	atten := uint32(255 - val)
	for _, c := range v.codecs {
		if err := c.Write(ctx, hardware.RegMasterVol, atten); err != nil {
			slog.Warn("control: master volume write failed", "codec", c.String(), "value", val, "err", err)
		}
	}
	v.vol = val
	return true, nil
}
