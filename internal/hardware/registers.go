package hardware

// TAS571x register addresses used by the PiFi-40 board.
const (
	RegClockCtrl   Register = 0x00 // Clock control: MCLK ratio and sample rate
	RegSoftMute    Register = 0x06 // Soft mute, bit 0 = ch1, bit 1 = ch2
	RegMasterVol   Register = 0x07 // Master volume, 0x00 = 24dB .. 0xff = mute, 0.5dB steps
	RegCh1Vol      Register = 0x08 // Channel 1 volume
	RegCh2Vol      Register = 0x09 // Channel 2 volume
	RegPWMShutdown Register = 0x19 // PWM shutdown group / BTL-PBTL select
	RegOscTrim     Register = 0x1b // Oscillator trim, write 0 to start factory trim
	RegInputMux    Register = 0x20 // Input mux (4 bytes)
	RegCh4SrcSel   Register = 0x21 // Channel 4 source select (4 bytes)
	RegPWMMux      Register = 0x25 // PWM output mux (4 bytes)
)

// RegisterSize returns the width in bytes of a TAS571x register.
// Control registers are one byte; the mux registers and the coefficient
// block 0x29-0xcf are 32-bit.
func RegisterSize(reg Register) int {
	switch {
	case reg == RegInputMux, reg == RegCh4SrcSel, reg == RegPWMMux:
		return 4
	case reg >= 0x29 && reg <= 0xcf:
		return 4
	default:
		return 1
	}
}

// EncodeRegister returns val as the big-endian payload for reg.
// Bits that do not fit the register width are dropped.
func EncodeRegister(reg Register, val uint32) []byte {
	n := RegisterSize(reg)
	buf := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(val)
		val >>= 8
	}
	return buf
}

// DecodeRegister is the inverse of EncodeRegister.
func DecodeRegister(data []byte) uint32 {
	var v uint32
	for _, b := range data {
		v = v<<8 | uint32(b)
	}
	return v
}
