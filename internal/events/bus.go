// Package events fans control change notifications out to subscribers
// such as SSE clients and the mixer state store.
package events

import (
	"sync"

	"github.com/micro-nova/pifi-go/internal/control"
)

const subBufferSize = 8

// Bus is a non-blocking publish-subscribe bus of control events.
// Slow subscribers have events dropped rather than blocking the
// control write that published them.
type Bus struct {
	mu   sync.Mutex
	subs map[string]chan control.Event
}

// NewBus returns a bus with no subscribers.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string]chan control.Event),
	}
}

// Subscribe registers a buffered channel under id. A second Subscribe
// with the same id replaces the first without closing it.
func (b *Bus) Subscribe(id string) <-chan control.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan control.Event, subBufferSize)
	b.subs[id] = ch
	return ch
}

// Unsubscribe closes and forgets the channel registered under id.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish hands ev to every subscriber with room in its buffer.
func (b *Bus) Publish(ev control.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

var _ control.Notifier = (*Bus)(nil)
