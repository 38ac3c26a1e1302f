// Package config loads the PiFi-40 board description and persists mixer
// state across restarts.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const boardFileName = "board.json"

// Bus transports.
const (
	TransportI2CDev = "i2cdev" // /dev/i2c-N via I2C_RDWR
	TransportPeriph = "periph" // periph.io i2creg
)

// Board describes how the card's components are wired.
type Board struct {
	CardName  string `json:"card_name"`
	Transport string `json:"transport"`
	// I2CDev is the character device for TransportI2CDev.
	I2CDev string `json:"i2c_dev"`
	// I2CBus is the periph.io bus name for TransportPeriph.
	I2CBus    string `json:"i2c_bus"`
	LeftAddr  uint16 `json:"left_addr"`
	RightAddr uint16 `json:"right_addr"`
	// PDNPin is the periph.io GPIO name of the shared power-down line.
	// Empty means the board has no PDN line wired.
	PDNPin    string `json:"pdn_pin"`
	OpsPerSec int    `json:"ops_per_sec"`
}

// DefaultBoard returns the stock PiFi-40 wiring.
func DefaultBoard() Board {
	return Board{
		CardName:  "PiFi40",
		Transport: TransportI2CDev,
		I2CDev:    "/dev/i2c-1",
		I2CBus:    "1",
		LeftAddr:  0x1a,
		RightAddr: 0x1b,
		PDNPin:    "GPIO4",
		OpsPerSec: 500,
	}
}

// BoardPath returns the board file path inside dir.
func BoardPath(dir string) string {
	return filepath.Join(dir, boardFileName)
}

// LoadBoard reads board.json from dir. A missing or corrupt file yields
// DefaultBoard; an invalid one is an error.
func LoadBoard(dir string) (Board, error) {
	path := BoardPath(dir)
	b := DefaultBoard()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return b, nil
		}
		return Board{}, err
	}
	if err := json.Unmarshal(data, &b); err != nil {
		slog.Warn("config: corrupt board file, using defaults", "path", path, "err", err)
		return DefaultBoard(), nil
	}
	fillBoard(&b)
	if err := b.Validate(); err != nil {
		return Board{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return b, nil
}

// Validate checks that the board can be brought up.
func (b Board) Validate() error {
	switch b.Transport {
	case TransportI2CDev, TransportPeriph:
	default:
		return fmt.Errorf("unknown transport %q", b.Transport)
	}
	for _, a := range []uint16{b.LeftAddr, b.RightAddr} {
		if a < 0x08 || a > 0x77 {
			return fmt.Errorf("codec address 0x%02x outside 7-bit range", a)
		}
	}
	if b.LeftAddr == b.RightAddr {
		return fmt.Errorf("left and right codec share address 0x%02x", b.LeftAddr)
	}
	return nil
}

// fillBoard restores defaults for fields an older or hand-written file
// left empty. Zero addresses are treated as missing.
func fillBoard(b *Board) {
	def := DefaultBoard()
	if b.CardName == "" {
		b.CardName = def.CardName
	}
	if b.Transport == "" {
		b.Transport = def.Transport
	}
	if b.I2CDev == "" {
		b.I2CDev = def.I2CDev
	}
	if b.I2CBus == "" {
		b.I2CBus = def.I2CBus
	}
	if b.LeftAddr == 0 {
		b.LeftAddr = def.LeftAddr
	}
	if b.RightAddr == 0 {
		b.RightAddr = def.RightAddr
	}
	if b.OpsPerSec < 0 {
		slog.Warn("config: negative ops_per_sec, disabling rate limit", "ops_per_sec", b.OpsPerSec)
		b.OpsPerSec = 0
	}
}
