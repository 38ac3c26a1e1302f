// Package card brings a PiFi-40 card up: it pulses the shared PDN line,
// programs both codecs, replaces the per-codec controls with the linked
// master volume and registers the card with the platform.
package card

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/micro-nova/pifi-go/internal/codec"
	"github.com/micro-nova/pifi-go/internal/control"
	"github.com/micro-nova/pifi-go/internal/hardware"
	"github.com/micro-nova/pifi-go/internal/power"
)

var (
	// ErrMissingCodec means fewer than two codecs were discovered.
	ErrMissingCodec = errors.New("card: codec missing")
	// ErrRegistrationRejected means the platform refused the card.
	ErrRegistrationRejected = errors.New("card: registration rejected")
)

// State is the bring-up progress of a card.
type State int

const (
	Uninitialized State = iota
	PowerSequenced
	ModeConfigured
	ControlsConsolidated
	Registered
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case PowerSequenced:
		return "power_sequenced"
	case ModeConfigured:
		return "mode_configured"
	case ControlsConsolidated:
		return "controls_consolidated"
	case Registered:
		return "registered"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Platform registers and unregisters cards. Both methods are called with
// the card's lock held and may only use c.Name.
type Platform interface {
	Register(c *Card) error
	Unregister(c *Card)
}

// Config is the discovery result a card is built from.
type Config struct {
	Name     string
	Codecs   hardware.Pair
	Line     power.Line
	Controls *control.Registry
	Platform Platform
	Delay    hardware.Delay
}

// Card owns the codec pair and the enable line for its lifetime.
type Card struct {
	name     string
	codecs   hardware.Pair
	line     power.Line
	controls *control.Registry
	platform Platform
	seq      *power.Sequencer
	cfg      *codec.Configurator

	mu     sync.Mutex
	state  State
	err    error
	volume *control.Volume
	linked *control.Control
	closed bool
	// release forces the enable line off. It is armed once, before the
	// first line drive, and runs on every exit path of the card.
	release func()
}

// New builds a card in the Uninitialized state.
func New(cfg Config) *Card {
	reg := cfg.Controls
	if reg == nil {
		reg = control.NewRegistry(cfg.Name, nil)
	}
	return &Card{
		name:     cfg.Name,
		codecs:   cfg.Codecs,
		line:     cfg.Line,
		controls: reg,
		platform: cfg.Platform,
		seq:      &power.Sequencer{Delay: cfg.Delay},
		cfg:      &codec.Configurator{Delay: cfg.Delay},
		release:  func() {},
	}
}

// Name returns the card name.
func (c *Card) Name() string { return c.name }

// Controls returns the card's control registry.
func (c *Card) Controls() *control.Registry { return c.controls }

// State returns the current state and, when Failed, the reason.
func (c *Card) State() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.err
}

// Volume returns the linked master volume, or nil before consolidation.
func (c *Card) Volume() *control.Volume {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// BringUp runs the full bring-up sequence. It blocks for the power and
// trim settling windows (roughly 120ms) and may only be called once.
func (c *Card) BringUp(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Uninitialized {
		return fmt.Errorf("card: %s bring-up already ran (state %s)", c.name, c.state)
	}

	if !c.codecs.Complete() {
		slog.Error("card: codec missing, refusing to attach", "card", c.name,
			"left", c.codecs[hardware.Left] != nil, "right", c.codecs[hardware.Right] != nil)
		return c.fail(ErrMissingCodec)
	}
	if _, ok := c.line.Get(); !ok {
		slog.Warn("card: no enable line, power sequencing disabled", "card", c.name)
	}
	c.release = sync.OnceFunc(func() {
		if err := c.seq.SetPower(c.line, false); err != nil {
			slog.Warn("card: failed to force enable line off", "card", c.name, "err", err)
		}
	})

	if err := c.seq.SequencePower(ctx, c.line); err != nil {
		if !errors.Is(err, power.ErrLineDrive) {
			c.release()
			return c.fail(fmt.Errorf("card: power sequence: %w", err))
		}
		slog.Warn("card: enable line misbehaved, continuing bring-up", "card", c.name, "err", err)
	}
	c.state = PowerSequenced

	if err := c.cfg.Configure(ctx, c.codecs); err != nil {
		c.release()
		return c.fail(fmt.Errorf("card: mode configuration: %w", err))
	}
	c.state = ModeConfigured

	vol := control.NewVolume(c.codecs)
	linked, err := c.controls.Install(control.MasterVolumeDescriptor, vol)
	if err != nil {
		c.release()
		return c.fail(fmt.Errorf("card: install linked volume: %w", err))
	}
	rep := control.Consolidate(c.controls, control.Channels[:], control.StockKinds[:])
	c.volume, c.linked = vol, linked
	c.state = ControlsConsolidated
	slog.Debug("card: controls consolidated", "card", c.name,
		"removed", len(rep.Removed), "not_found", len(rep.NotFound))

	if err := c.platform.Register(c); err != nil {
		// Codec registers keep their configuration; only the rail goes off.
		c.controls.Remove(linked)
		c.volume, c.linked = nil, nil
		c.release()
		slog.Error("card: registration rejected", "card", c.name, "err", err)
		return c.fail(fmt.Errorf("%w: %v", ErrRegistrationRejected, err))
	}
	c.state = Registered
	slog.Info("card: registered", "card", c.name,
		"left", c.codecs[hardware.Left].String(),
		"right", c.codecs[hardware.Right].String(),
		"line", c.line.String())
	return nil
}

// Close tears the card down. It waits for any in-flight control write,
// forces the enable line off and unregisters the card.
func (c *Card) Close() {
	c.controls.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.release()
	if c.state == Registered && !c.closed {
		c.platform.Unregister(c)
		slog.Info("card: unregistered", "card", c.name)
	}
	c.closed = true
}

func (c *Card) fail(err error) error {
	c.state = Failed
	c.err = err
	return err
}
