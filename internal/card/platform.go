package card

import (
	"fmt"
	"sync"
)

// Registry is the in-process Platform. Card names must be unique.
type Registry struct {
	mu    sync.Mutex
	cards map[string]*Card
}

// NewRegistry returns an empty card registry.
func NewRegistry() *Registry {
	return &Registry{cards: make(map[string]*Card)}
}

// Register adds c, rejecting a second card with the same name.
func (r *Registry) Register(c *Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cards[c.Name()]; ok {
		return fmt.Errorf("card %q already registered", c.Name())
	}
	r.cards[c.Name()] = c
	return nil
}

// Unregister removes c if it is the registered card of that name.
func (r *Registry) Unregister(c *Card) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.cards[c.Name()]; ok && cur == c {
		delete(r.cards, c.Name())
	}
}

// Lookup returns the registered card with the given name.
func (r *Registry) Lookup(name string) (*Card, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cards[name]
	return c, ok
}

var _ Platform = (*Registry)(nil)
