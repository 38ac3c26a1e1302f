// Package control implements the card's control registry, the removal of
// per-codec controls superseded at bring-up, and the linked master volume.
package control

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNotFound is returned when no control has the requested name.
	ErrNotFound = errors.New("control: not found")
	// ErrExists is returned when installing a control whose name is taken.
	ErrExists = errors.New("control: already exists")
	// ErrOutOfRange is returned when a value violates the control's range.
	ErrOutOfRange = errors.New("control: value out of range")
	// ErrReadOnly is returned when writing a control without write access.
	ErrReadOnly = errors.New("control: not writable")
	// ErrClosed is returned once the registry has been shut down.
	ErrClosed = errors.New("control: registry closed")
)

// Access flags of a control.
type Access uint8

const (
	AccessRead Access = 1 << iota
	AccessWrite

	ReadWrite = AccessRead | AccessWrite
)

// DBScale describes the dB mapping of an integer control.
type DBScale struct {
	MinCentiDB  int  `json:"min_cdb"`  // dB * 100 at the minimum value
	StepCentiDB int  `json:"step_cdb"` // dB * 100 per step
	MuteAtMin   bool `json:"mute_at_min"`
}

// Descriptor is the metadata a control is installed with.
type Descriptor struct {
	Name   string   `json:"name"`
	Count  int      `json:"count"` // number of values, 1 = mono, 2 = stereo
	Min    int64    `json:"min"`
	Max    int64    `json:"max"`
	Step   int64    `json:"step"`
	Invert bool     `json:"invert"` // hardware register is the complement of the value
	Scale  *DBScale `json:"db_scale,omitempty"`
	Access Access   `json:"access"`
}

// Handler backs a control's values.
type Handler interface {
	Get() []int64
	// Set applies values. changed reports whether observers should be notified.
	Set(ctx context.Context, values []int64) (changed bool, err error)
}

// Control is one installed control element.
type Control struct {
	desc    Descriptor
	handler Handler
}

// Descriptor returns a copy of the control's metadata.
func (c *Control) Descriptor() Descriptor { return c.desc }

// Value is a control snapshot.
type Value struct {
	Descriptor
	Values []int64 `json:"values"`
}

// Notifier receives change notifications.
type Notifier interface {
	Publish(ev Event)
}

// Event is published after a control write reports a change.
type Event struct {
	Card    string  `json:"card"`
	Control string  `json:"control"`
	Values  []int64 `json:"values"`
}

// Registry holds the controls of one card.
//
// Handlers run under the registry's read lock, so Close waits for any
// in-flight Set before returning.
type Registry struct {
	mu       sync.RWMutex
	card     string
	controls map[string]*Control
	notify   Notifier
	closed   bool
}

// NewRegistry creates an empty registry for card. notify may be nil.
func NewRegistry(card string, notify Notifier) *Registry {
	return &Registry{
		card:     card,
		controls: make(map[string]*Control),
		notify:   notify,
	}
}

// Card returns the owning card's name.
func (r *Registry) Card() string { return r.card }

// Install adds a control.
func (r *Registry) Install(desc Descriptor, h Handler) (*Control, error) {
	if desc.Count <= 0 {
		desc.Count = 1
	}
	if desc.Step <= 0 {
		desc.Step = 1
	}
	if desc.Access == 0 {
		desc.Access = ReadWrite
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if _, ok := r.controls[desc.Name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrExists, desc.Name)
	}
	c := &Control{desc: desc, handler: h}
	r.controls[desc.Name] = c
	return c, nil
}

// Find looks up a control by display name.
func (r *Registry) Find(name string) (*Control, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.controls[name]
	return c, ok
}

// SetAccess replaces a control's access flags.
func (r *Registry) SetAccess(c *Control, a Access) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.desc.Access = a
}

// Remove deletes c from the registry. Removing an absent control is a no-op.
func (r *Registry) Remove(c *Control) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.controls[c.desc.Name]; ok && cur == c {
		delete(r.controls, c.desc.Name)
	}
}

// List returns snapshots of all controls sorted by name.
func (r *Registry) List() []Value {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Value, 0, len(r.controls))
	for _, c := range r.controls {
		out = append(out, snapshot(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns a snapshot of the named control.
func (r *Registry) Get(name string) (Value, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.controls[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return snapshot(c), nil
}

// Set validates values against the control's metadata and applies them.
// A single value is broadcast to every channel of the control.
func (r *Registry) Set(ctx context.Context, name string, values []int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false, ErrClosed
	}
	c, ok := r.controls[name]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	d := c.desc
	if d.Access&AccessWrite == 0 {
		return false, fmt.Errorf("%w: %q", ErrReadOnly, name)
	}
	if len(values) == 1 && d.Count > 1 {
		v := values[0]
		values = make([]int64, d.Count)
		for i := range values {
			values[i] = v
		}
	}
	if len(values) != d.Count {
		return false, fmt.Errorf("%w: %q takes %d values, got %d", ErrOutOfRange, name, d.Count, len(values))
	}
	for _, v := range values {
		if v < d.Min || v > d.Max || (v-d.Min)%d.Step != 0 {
			return false, fmt.Errorf("%w: %q accepts [%d, %d] step %d, got %d", ErrOutOfRange, name, d.Min, d.Max, d.Step, v)
		}
	}
	changed, err := c.handler.Set(ctx, values)
	if err != nil {
		return false, err
	}
	if changed && r.notify != nil {
		r.notify.Publish(Event{Card: r.card, Control: name, Values: c.handler.Get()})
	}
	return changed, nil
}

// Close rejects further writes once any in-flight Set has returned.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func snapshot(c *Control) Value {
	return Value{Descriptor: c.desc, Values: c.handler.Get()}
}
