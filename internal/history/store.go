package history

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Append once a store has been closed.
var ErrClosed = errors.New("history: store closed")

// Store is the append-only log of events for one sensor.
type Store interface {
	// Append adds e to the end of the log. The first appended event fixes
	// the initial time.
	Append(ctx context.Context, e Event) error

	// Events returns a copy of the log as of the call.
	Events() []Event

	// InitialTime returns the time of the first recorded event that has one.
	InitialTime() (int64, bool)

	// Len returns the number of recorded events.
	Len() int

	// Close releases resources. Further appends fail with ErrClosed.
	Close() error
}

// MemoryStore keeps the log in a slice. Readers get a copy, so a scan never
// observes a concurrent append.
type MemoryStore struct {
	mu         sync.RWMutex
	events     []Event
	initial    int64
	hasInitial bool
	closed     bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// restore seeds the store with previously persisted state.
func (m *MemoryStore) restore(events []Event, initial int64, hasInitial bool) {
	m.mu.Lock()
	m.events = events
	m.initial = initial
	m.hasInitial = hasInitial
	if !m.hasInitial {
		for _, e := range events {
			if e.HasTime() {
				m.initial = e.Time
				m.hasInitial = true
				break
			}
		}
	}
	m.mu.Unlock()
}

// Append adds e to the log.
func (m *MemoryStore) Append(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if !m.hasInitial && e.HasTime() {
		m.initial = e.Time
		m.hasInitial = true
	}
	m.events = append(m.events, e)
	return nil
}

// Events returns a copy of the log.
func (m *MemoryStore) Events() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// InitialTime returns the time of the first recorded event.
func (m *MemoryStore) InitialTime() (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initial, m.hasInitial
}

// Len returns the number of recorded events.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// Close marks the store closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
