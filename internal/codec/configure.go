package codec

import (
	"context"
	"log/slog"
	"time"

	"github.com/micro-nova/pifi-go/internal/hardware"
)

// Register values written at bring-up.
const (
	ClockMCLK64fs   = 0x60       // MCLK at 64fs, 44.1/48kHz
	PWMShutdownPBTL = 0x3a       // parallel bridge-tied load
	PWMMuxPBTL      = 0x01103245 // PWM outputs paired for PBTL
	InitialAtten    = 0x44       // master volume at roughly -10dB

	// Both internal channels take the left (resp. right) serial input.
	// Swapping these reverses the stereo image.
	InputMuxLeft  = 0x00017772
	InputMuxRight = 0x00107772
)

const (
	trimSettleMin = 60 * time.Millisecond
	trimSettleMax = 80 * time.Millisecond
)

// TrimProgram clears the oscillator trim, starting the factory trim.
var TrimProgram = Program{
	{Reg: hardware.RegOscTrim, Value: 0},
}

// CommonProgram puts a codec into PBTL mode at the initial attenuation.
var CommonProgram = Program{
	{Reg: hardware.RegClockCtrl, Value: ClockMCLK64fs},
	{Reg: hardware.RegPWMShutdown, Value: PWMShutdownPBTL},
	{Reg: hardware.RegPWMMux, Value: PWMMuxPBTL},
	{Reg: hardware.RegMasterVol, Value: InitialAtten},
}

// RoutingProgram returns the input routing for the codec at index ch of the pair.
func RoutingProgram(ch int) Program {
	mux := uint32(InputMuxLeft)
	if ch == hardware.Right {
		mux = InputMuxRight
	}
	return Program{{Reg: hardware.RegInputMux, Value: mux}}
}

// Configurator issues the mode configuration of a codec pair.
type Configurator struct {
	Delay hardware.Delay
}

// Configure trims both oscillators, waits 60-80ms for the trim to settle,
// then programs PBTL mode, initial volume and input routing on each codec.
// Bus failures are logged and do not stop the sequence; only context
// cancellation during the settle window returns an error.
func (cf *Configurator) Configure(ctx context.Context, codecs hardware.Pair) error {
	failed := 0
	for _, c := range codecs {
		failed += TrimProgram.Apply(ctx, c)
	}
	if err := cf.Delay.Settle(ctx, trimSettleMin, trimSettleMax); err != nil {
		return err
	}
	for _, c := range codecs {
		failed += CommonProgram.Apply(ctx, c)
	}
	for ch, c := range codecs {
		failed += RoutingProgram(ch).Apply(ctx, c)
	}
	if failed > 0 {
		slog.Warn("codec: mode configuration finished with bus errors", "failed_writes", failed)
	} else {
		slog.Debug("codec: mode configuration complete")
	}
	return nil
}
