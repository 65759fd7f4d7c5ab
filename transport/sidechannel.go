package transport

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/haowjy/meridian-ondevice-go"
)

// ExtractSuggestions returns the suggestions of a final chat object.
// It returns nil when the field is absent or empty.
func ExtractSuggestions(final json.RawMessage) []string {
	v := gjson.GetBytes(final, "suggestions")
	if !v.IsArray() {
		return nil
	}
	var out []string
	for _, s := range v.Array() {
		if s.Type == gjson.String {
			out = append(out, s.Str)
		}
	}
	return out
}

// PublishSuggestions stores the suggestions of a final chat object verbatim.
// Nothing is published when there are none, so earlier suggestions stay in
// place. It reports whether the store was written.
func PublishSuggestions(final json.RawMessage, store SuggestionStore) bool {
	if store == nil {
		return false
	}
	suggestions := ExtractSuggestions(final)
	if len(suggestions) == 0 {
		return false
	}
	store.SetSuggestions(suggestions)
	return true
}

// IsFieldComplete reports whether a field value counts as generated:
// non-blank strings, non-empty arrays and objects with at least one key.
// Nested values are not inspected.
func IsFieldComplete(v gjson.Result) bool {
	switch {
	case !v.Exists():
		return false
	case v.Type == gjson.String:
		return strings.TrimSpace(v.Str) != ""
	case v.IsArray():
		return len(v.Array()) > 0
	case v.IsObject():
		return len(v.Map()) > 0
	default:
		return false
	}
}

// FieldTracker accumulates completed fields across snapshots of one object.
// A field never leaves the completed set once added. Safe for concurrent use.
type FieldTracker struct {
	order []string

	mu        sync.Mutex
	completed map[string]bool
}

// NewFieldTracker tracks the fields of schema, required fields first.
func NewFieldTracker(schema *ondevice.Schema) *FieldTracker {
	return &FieldTracker{
		order:     schema.FieldNames(),
		completed: make(map[string]bool),
	}
}

// Observe folds a snapshot into the completed set and returns the progress.
func (t *FieldTracker) Observe(raw json.RawMessage) ondevice.FieldProgress {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, name := range t.order {
		if !t.completed[name] && IsFieldComplete(gjson.GetBytes(raw, name)) {
			t.completed[name] = true
		}
	}
	return t.progressLocked()
}

// Progress returns the completed set and the first incomplete field.
func (t *FieldTracker) Progress() ondevice.FieldProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progressLocked()
}

func (t *FieldTracker) progressLocked() ondevice.FieldProgress {
	p := ondevice.FieldProgress{Completed: []string{}}
	for _, name := range t.order {
		if t.completed[name] {
			p.Completed = append(p.Completed, name)
		} else if p.Current == "" {
			p.Current = name
		}
	}
	return p
}
