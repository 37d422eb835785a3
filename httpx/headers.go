package httpx

import "strings"

// Headers is an insertion-ordered multimap: a header name may occur more
// than once (required for Set-Cookie / Cookie), and get_value semantics
// return only the first occurrence.
type Headers struct {
	entries []headerEntry
}

type headerEntry struct {
	name  string
	value string
}

// Add appends a new (name, value) pair, preserving any existing entries for
// the same name.
func (h *Headers) Add(name, value string) {
	h.entries = append(h.entries, headerEntry{name: name, value: value})
}

// Change deletes every existing entry for name and inserts a single entry
// with the given value.
func (h *Headers) Change(name, value string) {
	h.Delete(name)
	h.Add(name, value)
}

// Delete removes every entry for name.
func (h *Headers) Delete(name string) {
	out := h.entries[:0]
	for _, e := range h.entries {
		if !strings.EqualFold(e.name, name) {
			out = append(out, e)
		}
	}
	h.entries = out
}

// Has reports whether at least one entry exists for name.
func (h *Headers) Has(name string) bool {
	for _, e := range h.entries {
		if strings.EqualFold(e.name, name) {
			return true
		}
	}
	return false
}

// Get returns the first value stored for name, or "" if absent.
func (h *Headers) Get(name string) string {
	for _, e := range h.entries {
		if strings.EqualFold(e.name, name) {
			return e.value
		}
	}
	return ""
}

// Values returns every value stored for name, in insertion order.
func (h *Headers) Values(name string) []string {
	var out []string
	for _, e := range h.entries {
		if strings.EqualFold(e.name, name) {
			out = append(out, e.value)
		}
	}
	return out
}

// Count returns the number of entries stored for name.
func (h *Headers) Count(name string) int {
	n := 0
	for _, e := range h.entries {
		if strings.EqualFold(e.name, name) {
			n++
		}
	}
	return n
}

// Each calls fn for every (name, value) pair in insertion order.
func (h *Headers) Each(fn func(name, value string)) {
	for _, e := range h.entries {
		fn(e.name, e.value)
	}
}

// Len returns the total number of entries, counting duplicates.
func (h *Headers) Len() int {
	return len(h.entries)
}
