package store

import (
	"sync"

	"github.com/haowjy/meridian-ondevice-go"
)

// World holds the generated world of a session, the seed prompt it came
// from, the opening scene and the latest generation progress.
type World struct {
	mu       sync.RWMutex
	data     *ondevice.WorldData
	seed     string
	initial  string
	progress ondevice.FieldProgress
}

// NewWorld returns an empty world store.
func NewWorld() *World {
	return &World{}
}

// WorldData returns the stored world, or false if none was generated yet.
func (w *World) WorldData() (ondevice.WorldData, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.data == nil {
		return ondevice.WorldData{}, false
	}
	return *w.data, true
}

func (w *World) SetWorldData(data ondevice.WorldData) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.data = &data
}

func (w *World) SeedPrompt() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.seed
}

func (w *World) SetSeedPrompt(seed string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seed = seed
}

func (w *World) InitialMessage() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.initial
}

func (w *World) SetInitialMessage(message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.initial = message
}

// Progress returns the latest field progress of world generation.
func (w *World) Progress() ondevice.FieldProgress {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return ondevice.FieldProgress{
		Completed: append([]string(nil), w.progress.Completed...),
		Current:   w.progress.Current,
	}
}

func (w *World) SetProgress(progress ondevice.FieldProgress) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.progress = ondevice.FieldProgress{
		Completed: append([]string(nil), progress.Completed...),
		Current:   progress.Current,
	}
}

// Clear forgets the world, seed prompt, opening scene and progress.
func (w *World) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.data = nil
	w.seed = ""
	w.initial = ""
	w.progress = ondevice.FieldProgress{}
}
