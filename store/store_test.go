package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haowjy/meridian-ondevice-go"
)

func TestSuggestions(t *testing.T) {
	s := NewSuggestions()
	assert.Empty(t, s.Get())

	input := []string{"A?", "B?"}
	s.SetSuggestions(input)
	input[0] = "mutated"
	assert.Equal(t, []string{"A?", "B?"}, s.Get())

	got := s.Get()
	got[1] = "mutated"
	assert.Equal(t, []string{"A?", "B?"}, s.Get())

	s.Clear()
	assert.Empty(t, s.Get())
}

func TestWorld(t *testing.T) {
	w := NewWorld()

	_, ok := w.WorldData()
	assert.False(t, ok)

	w.SetSeedPrompt("You are a text adventure game set in space.")
	w.SetWorldData(ondevice.WorldData{Title: "Starfall", Genre: "sci-fi"})
	w.SetInitialMessage("You wake up aboard a derelict ship.")
	w.SetProgress(ondevice.FieldProgress{Completed: []string{"title"}, Current: "description"})

	data, ok := w.WorldData()
	require.True(t, ok)
	assert.Equal(t, "Starfall", data.Title)
	assert.Equal(t, "You are a text adventure game set in space.", w.SeedPrompt())
	assert.Equal(t, "You wake up aboard a derelict ship.", w.InitialMessage())
	assert.Equal(t, "description", w.Progress().Current)
	assert.True(t, w.Progress().Has("title"))

	w.Clear()
	_, ok = w.WorldData()
	assert.False(t, ok)
	assert.Empty(t, w.SeedPrompt())
	assert.Empty(t, w.InitialMessage())
	assert.Empty(t, w.Progress().Completed)
}
