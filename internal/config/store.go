package config

// MixerState is the persisted value of every control of one card.
type MixerState struct {
	Card     string             `json:"card"`
	Controls map[string][]int64 `json:"controls"`
}

// DeepCopy returns a copy that shares no slices or maps with s.
func (s MixerState) DeepCopy() MixerState {
	cp := MixerState{Card: s.Card, Controls: make(map[string][]int64, len(s.Controls))}
	for k, v := range s.Controls {
		cp.Controls[k] = append([]int64(nil), v...)
	}
	return cp
}

// Store persists mixer state.
type Store interface {
	// Load returns the saved state, or an empty state if nothing was saved.
	Load() (*MixerState, error)

	// Save persists the state. Implementations may debounce rapid saves.
	Save(state *MixerState) error

	// Path returns the file path used by this store.
	Path() string

	// Flush forces an immediate write of any pending state.
	Flush() error
}

func emptyState() *MixerState {
	return &MixerState{Controls: make(map[string][]int64)}
}
