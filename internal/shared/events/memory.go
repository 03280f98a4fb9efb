package events

import (
	"context"
	"sync"
)

// DefaultMemoryCapacity is how many events the in-process bus retains.
const DefaultMemoryCapacity = 200

// MemoryBus keeps the most recent events in a ring buffer.
type MemoryBus struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
}

// NewMemoryBus creates an in-process bus retaining capacity events.
func NewMemoryBus(capacity int) *MemoryBus {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryBus{events: make([]Event, capacity)}
}

// Publish stores the event, evicting the oldest when full.
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[b.next] = event
	b.next = (b.next + 1) % len(b.events)
	if b.next == 0 {
		b.full = true
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (b *MemoryBus) Recent(ctx context.Context, limit int) ([]Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := b.next
	if b.full {
		size = len(b.events)
	}
	if limit > size {
		limit = size
	}
	if limit < 0 {
		limit = 0
	}

	result := make([]Event, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (b.next - i + len(b.events)) % len(b.events)
		result = append(result, b.events[idx])
	}
	return result, nil
}

func (b *MemoryBus) Close() {}

func (b *MemoryBus) Health() error { return nil }
