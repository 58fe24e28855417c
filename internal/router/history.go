package router

import "sync"

// Mode selects how a navigation is written to history.
type Mode string

const (
	ModePush    Mode = "push"
	ModeReplace Mode = "replace"
)

// Origin is what caused a navigation.
type Origin string

const (
	OriginPop     Origin = "pop"
	OriginPush    Origin = "push"
	OriginReplace Origin = "replace"
)

func (m Mode) origin() Origin {
	if m == ModeReplace {
		return OriginReplace
	}
	return OriginPush
}

// HistoryEntry is one history slot.
type HistoryEntry struct {
	Location Location
	State    any
}

// History is the session history a navigator keeps in sync.
type History interface {
	Current() HistoryEntry
	Go(delta int)
	Back()
	Forward()
	NewEntry(loc Location, state any, mode Mode)
	// OnPop registers fn for entries reached through Go, Back or Forward.
	OnPop(fn func(HistoryEntry)) (remove func())
}

// MemoryHistory is an in-memory History.
//
// Thread-safety: safe for concurrent use. Pop listeners run synchronously
// after the move, outside the lock.
type MemoryHistory struct {
	mu        sync.Mutex
	entries   []HistoryEntry
	index     int
	listeners []*func(HistoryEntry)
}

// NewMemoryHistory creates a history holding one entry.
func NewMemoryHistory(initial Location) *MemoryHistory {
	return &MemoryHistory{entries: []HistoryEntry{{Location: initial}}}
}

// Current returns the active entry.
func (h *MemoryHistory) Current() HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Entries returns a copy of all entries and the active index.
func (h *MemoryHistory) Entries() ([]HistoryEntry, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out, h.index
}

// Go moves delta entries. Moves past either end are clamped; a move that
// changes nothing notifies no one.
func (h *MemoryHistory) Go(delta int) {
	h.mu.Lock()
	target := h.index + delta
	if target < 0 {
		target = 0
	}
	if target > len(h.entries)-1 {
		target = len(h.entries) - 1
	}
	if target == h.index {
		h.mu.Unlock()
		return
	}
	h.index = target
	entry := h.entries[target]
	listeners := h.listeners
	h.mu.Unlock()

	for _, fn := range listeners {
		(*fn)(entry)
	}
}

// Back moves one entry back.
func (h *MemoryHistory) Back() { h.Go(-1) }

// Forward moves one entry forward.
func (h *MemoryHistory) Forward() { h.Go(1) }

// NewEntry pushes or replaces. Pushing drops any forward entries.
func (h *MemoryHistory) NewEntry(loc Location, state any, mode Mode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry := HistoryEntry{Location: loc, State: state}
	if mode == ModeReplace {
		h.entries[h.index] = entry
		return
	}
	h.entries = append(h.entries[:h.index+1:h.index+1], entry)
	h.index++
}

// OnPop registers a pop listener.
func (h *MemoryHistory) OnPop(fn func(HistoryEntry)) func() {
	p := &fn
	h.mu.Lock()
	h.listeners = append(h.listeners[:len(h.listeners):len(h.listeners)], p)
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, l := range h.listeners {
			if l == p {
				next := make([]*func(HistoryEntry), 0, len(h.listeners)-1)
				next = append(next, h.listeners[:i]...)
				h.listeners = append(next, h.listeners[i+1:]...)
				return
			}
		}
	}
}
