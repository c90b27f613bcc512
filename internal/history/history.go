// Package history tracks the location of the interactive client, in the way a
// browser history does: locations are pushed, popped, and listeners are told
// about every change.
package history

import (
	"path"
	"strings"
	"sync"
)

// Root is the entry location every history starts at
const Root = "/"

// Listener is called with the new location after every change
type Listener func(location string)

// History is a stack of locations that is safe for concurrent use
type History struct {
	mu        sync.Mutex
	entries   []string
	listeners map[int]Listener
	nextID    int
}

// New returns a history positioned at Root
func New() *History {
	return &History{
		entries:   []string{Root},
		listeners: map[int]Listener{},
	}
}

// Push navigates to location, relative locations resolve against the current one
func (h *History) Push(location string) {
	h.mu.Lock()
	next := h.resolve(location)
	h.entries = append(h.entries, next)
	listeners := h.snapshot()
	h.mu.Unlock()

	notify(listeners, next)
}

// Back returns to the previous location, staying at the first entry
func (h *History) Back() string {
	h.mu.Lock()
	if len(h.entries) > 1 {
		h.entries = h.entries[:len(h.entries)-1]
	}
	current := h.entries[len(h.entries)-1]
	listeners := h.snapshot()
	h.mu.Unlock()

	notify(listeners, current)
	return current
}

// Location returns the current location
func (h *History) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

// Len returns the number of entries
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Listen registers fn and returns a function removing it
func (h *History) Listen(fn Listener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

// Resolve returns the location Push would navigate to, without navigating
func (h *History) Resolve(location string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resolve(location)
}

// caller holds h.mu
func (h *History) resolve(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return Root
	}
	// keep the query string out of path cleaning
	query := ""
	if i := strings.IndexByte(location, '?'); i >= 0 {
		location, query = location[:i], location[i:]
	}
	if !strings.HasPrefix(location, "/") {
		location = path.Join(h.entries[len(h.entries)-1], location)
	}
	return path.Clean(location) + query
}

// caller holds h.mu
func (h *History) snapshot() []Listener {
	listeners := make([]Listener, 0, len(h.listeners))
	for i := 0; i < h.nextID; i++ {
		if fn, ok := h.listeners[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	return listeners
}

func notify(listeners []Listener, location string) {
	for _, fn := range listeners {
		fn(location)
	}
}
