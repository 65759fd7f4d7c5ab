// Package store holds the in-memory session state written by the transport:
// chat suggestions and the generated world. Stores are explicit handles;
// create one per session and pass it to the transport options.
package store

import "sync"

// Suggestions holds the follow-up suggestions of the latest chat response.
type Suggestions struct {
	mu    sync.RWMutex
	items []string
}

// NewSuggestions returns an empty suggestion store.
func NewSuggestions() *Suggestions {
	return &Suggestions{}
}

// Get returns a copy of the current suggestions.
func (s *Suggestions) Get() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.items...)
}

// SetSuggestions replaces the current suggestions.
func (s *Suggestions) SetSuggestions(items []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]string(nil), items...)
}

// Clear removes all suggestions.
func (s *Suggestions) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}
