// Package events carries in-process content-change notifications: one event
// per newly materialized virtual directory and one refresh event per
// non-empty carved batch. Downstream observers (the CLI, indexers) consume
// them without coupling to the carving pipeline.
package events

import (
	"context"
	"sync"
	"time"
)

// Kind discriminates content-change events.
type Kind string

const (
	// KindDirectoryAdded fires once per virtual directory first seen in a batch.
	KindDirectoryAdded Kind = "directory_added"
	// KindItemsAdded fires once per non-empty batch, carrying one arbitrary
	// item to trigger a generic view refresh.
	KindItemsAdded Kind = "items_added"
)

// Event is one content-change notification.
type Event struct {
	Sequence  uint64
	Timestamp time.Time
	Kind      Kind
	JobID     int64
	ContentID int64
	Name      string
}

// Bus stores recent content events in a bounded buffer and wakes waiters
// when new events arrive.
type Bus struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	nextSeq  uint64
}

// NewBus constructs a bounded in-memory event buffer.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 512
	}
	b := &Bus{capacity: capacity}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Publish appends an event to the bus.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	evt.Sequence = b.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	if len(b.buffer) == b.capacity {
		copy(b.buffer, b.buffer[1:])
		b.buffer = b.buffer[:b.capacity-1]
	}
	b.buffer = append(b.buffer, evt)
	b.cond.Broadcast()
}

// Fetch returns events with sequence greater than since. When wait is true,
// Fetch blocks until at least one event is available or the context ends.
func (b *Bus) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]Event, uint64, error) {
	if b == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > b.capacity {
		limit = b.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				b.cond.Broadcast()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	b.mu.Lock()
	defer b.mu.Unlock()

	for {
		events, next := b.snapshotLocked(since, limit)
		if len(events) > 0 || !wait {
			return events, next, contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
		b.cond.Wait()
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
	}
}

// Tail returns the most recent limit events without blocking.
func (b *Bus) Tail(limit int) ([]Event, uint64) {
	if b == nil {
		return nil, 0
	}
	if limit <= 0 || limit > b.capacity {
		limit = b.capacity
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	start := len(b.buffer) - limit
	if start < 0 {
		start = 0
	}
	events := append([]Event(nil), b.buffer[start:]...)
	return events, b.nextSeq
}

func (b *Bus) snapshotLocked(since uint64, limit int) ([]Event, uint64) {
	var events []Event
	for _, evt := range b.buffer {
		if evt.Sequence <= since {
			continue
		}
		events = append(events, evt)
		if len(events) == limit {
			break
		}
	}
	next := since
	if n := len(events); n > 0 {
		next = events[n-1].Sequence
	} else if b.nextSeq > since {
		next = b.nextSeq
	}
	return events, next
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
