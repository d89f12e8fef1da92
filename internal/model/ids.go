package model

import "sync"

// Allocator hands out item ids. The counter starts at 0 and is incremented
// before every allocation, so the first id is 1.
type Allocator struct {
	mu   sync.Mutex
	last ID
}

// NewAllocator returns an allocator whose first id is 1.
func NewAllocator() *Allocator { return &Allocator{} }

// Next allocates a fresh id.
func (a *Allocator) Next() ID {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last++
	return a.last
}

// Observe moves the counter past every id in l. It never moves backwards.
// Call it with lists loaded from storage so new ids don't collide.
func (a *Allocator) Observe(l List) {
	max := l.MaxID()
	a.mu.Lock()
	if max > a.last {
		a.last = max
	}
	a.mu.Unlock()
}
