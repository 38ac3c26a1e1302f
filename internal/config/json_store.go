package config

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	mixerFileName = "mixer.json"
	debounceDelay = 500 * time.Millisecond
)

// JSONStore keeps mixer state in mixer.json. Saves are coalesced and
// written by rename so a crash leaves either the old or the new file.
type JSONStore struct {
	mu      sync.Mutex
	path    string
	timer   *time.Timer
	pending *MixerState
}

// NewJSONStore returns a store for configDir/mixer.json.
func NewJSONStore(configDir string) *JSONStore {
	return &JSONStore{
		path: filepath.Join(configDir, mixerFileName),
	}
}

func (s *JSONStore) Path() string { return s.path }

// Load returns the saved mixer state. A missing or corrupt file yields
// no saved controls.
func (s *JSONStore) Load() (*MixerState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptyState(), nil
		}
		return nil, err
	}

	var state MixerState
	if err := json.Unmarshal(data, &state); err != nil {
		slog.Warn("config: corrupt mixer state, ignoring", "path", s.path, "err", err)
		return emptyState(), nil
	}
	if state.Controls == nil {
		state.Controls = make(map[string][]int64)
	}
	return &state, nil
}

// Save records state and writes it once no further Save arrives for
// debounceDelay.
func (s *JSONStore) Save(state *MixerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := state.DeepCopy()
	s.pending = &cp

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(debounceDelay, func() {
		s.mu.Lock()
		st := s.pending
		s.mu.Unlock()
		if st != nil {
			if err := s.writeAtomic(st); err != nil {
				slog.Error("config: failed to write mixer state", "path", s.path, "err", err)
			}
		}
	})
	return nil
}

// Flush writes the last saved state now. Called at shutdown.
func (s *JSONStore) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	st := s.pending
	s.mu.Unlock()
	if st == nil {
		return nil
	}
	return s.writeAtomic(st)
}

func (s *JSONStore) writeAtomic(state *MixerState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

var _ Store = (*JSONStore)(nil)
