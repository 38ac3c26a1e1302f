// Package mixer restores saved control values after bring-up and keeps the
// saved state current as controls change.
package mixer

import (
	"context"
	"log/slog"

	"github.com/micro-nova/pifi-go/internal/config"
	"github.com/micro-nova/pifi-go/internal/control"
)

const subscriberID = "mixer-store"

// Subscriber is the part of events.Bus the saver needs.
type Subscriber interface {
	Subscribe(id string) <-chan control.Event
	Unsubscribe(id string)
}

// Restore writes every saved value whose control still exists. Controls
// that were removed at bring-up, or saved for another card, are skipped.
// It returns the number of controls restored.
func Restore(ctx context.Context, reg *control.Registry, store config.Store) int {
	state, err := store.Load()
	if err != nil {
		slog.Warn("mixer: could not load saved state", "path", store.Path(), "err", err)
		return 0
	}
	if state.Card != "" && state.Card != reg.Card() {
		slog.Info("mixer: saved state belongs to another card, ignoring", "saved", state.Card, "card", reg.Card())
		return 0
	}
	n := 0
	for name, vals := range state.Controls {
		if _, ok := reg.Find(name); !ok {
			slog.Debug("mixer: saved control no longer exists", "control", name)
			continue
		}
		if _, err := reg.Set(ctx, name, vals); err != nil {
			slog.Warn("mixer: restore failed", "control", name, "values", vals, "err", err)
			continue
		}
		n++
	}
	slog.Info("mixer: restored controls", "card", reg.Card(), "count", n)
	return n
}

// Start subscribes to sub and, in the background, saves a snapshot of reg
// every time one of its controls changes. The subscription is live when
// Start returns. The returned channel is closed once saving has stopped
// after ctx is done; no Save happens after that.
func Start(ctx context.Context, sub Subscriber, reg *control.Registry, store config.Store) <-chan struct{} {
	ch := sub.Subscribe(subscriberID)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer sub.Unsubscribe(subscriberID)
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if ev.Card != reg.Card() {
					continue
				}
				if err := store.Save(snapshot(reg)); err != nil {
					slog.Warn("mixer: save failed", "path", store.Path(), "err", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return done
}

func snapshot(reg *control.Registry) *config.MixerState {
	st := &config.MixerState{Card: reg.Card(), Controls: make(map[string][]int64)}
	for _, v := range reg.List() {
		if v.Access&control.AccessWrite == 0 {
			continue
		}
		st.Controls[v.Name] = v.Values
	}
	return st
}
