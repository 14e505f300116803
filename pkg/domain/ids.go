package domain

import "sync"

// IDSource hands out fresh identifiers per entity type.
type IDSource interface {
	NextID(kind EntityType) int
}

// IDAllocator is a per-type monotonic counter. Counters start at 1 and are
// raised past every id observed in a loaded snapshot so that a restarted
// process never reissues a persisted id.
type IDAllocator struct {
	mu   sync.Mutex
	next map[EntityType]int
}

var _ IDSource = (*IDAllocator)(nil)

// NewIDAllocator returns an allocator with every counter at 1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{next: make(map[EntityType]int)}
}

// NextID returns the next free id for kind.
func (a *IDAllocator) NextID(kind EntityType) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.peekLocked(kind)
	a.next[kind] = id + 1
	return id
}

// Peek returns the id NextID would hand out without consuming it.
func (a *IDAllocator) Peek(kind EntityType) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.peekLocked(kind)
}

// Observe raises the counter for kind past id.
func (a *IDAllocator) Observe(kind EntityType, id int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id >= a.peekLocked(kind) {
		a.next[kind] = id + 1
	}
}

// Seed raises every counter to max(existing id)+1 for the snapshot.
func (a *IDAllocator) Seed(s Snapshot) {
	for _, kind := range EntityTypes {
		if highest := s.MaxID(kind); highest > 0 {
			a.Observe(kind, highest)
		}
	}
}

func (a *IDAllocator) peekLocked(kind EntityType) int {
	if n, ok := a.next[kind]; ok {
		return n
	}
	return 1
}
