package activity

import (
	"context"
	"sync"
)

const defaultMemoryCapacity = 100

type memoryRecorder struct {
	mu       sync.RWMutex
	capacity int
	events   []Event
	latest   map[string]Event
}

// NewMemory keeps the latest capacity events in process memory.
func NewMemory(capacity int) Recorder {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &memoryRecorder{capacity: capacity, latest: make(map[string]Event)}
}

func (r *memoryRecorder) Record(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	if prev, ok := r.latest[event.Kind]; !ok || !event.OccurredAt.Before(prev.OccurredAt) {
		r.latest[event.Kind] = event
	}
	if over := len(r.events) - r.capacity; over > 0 {
		r.events = append([]Event(nil), r.events[over:]...)
	}
	return nil
}

func (r *memoryRecorder) Recent(_ context.Context, limit int) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit > len(r.events) {
		limit = len(r.events)
	}
	out := make([]Event, 0, limit)
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.events[i])
	}
	return out, nil
}

func (r *memoryRecorder) Latest(_ context.Context, kind string) (Event, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.latest[kind]
	return e, ok, nil
}
