package graph

import "strconv"

// ID identifies a pin, node or link. The zero ID is never allocated.
type ID int64

// String returns the decimal form of the id.
func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// IDAllocator hands out ids from one monotonically increasing counter.
//
// The allocator belongs to the mutation goroutine; it is not safe for
// concurrent use and must never be reached from a background goroutine.
type IDAllocator struct {
	next ID
}

// NewIDAllocator returns an allocator whose first id is 1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{next: 1}
}

// Next returns a fresh id.
func (a *IDAllocator) Next() ID {
	if a.next == 0 {
		a.next = 1
	}
	id := a.next
	a.next++
	return id
}

// Peek returns the id the next call to Next will return.
func (a *IDAllocator) Peek() ID {
	if a.next == 0 {
		return 1
	}
	return a.next
}
