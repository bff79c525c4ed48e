// Package contact tracks the current state of a contact sensor and records
// every change notification in its history store.
package contact

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/contact-sensor/internal/history"
)

// Tracker owns the sensor's current state and appends one history event per
// notification. Queries derive metrics from the history on demand.
// It is safe for concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	state history.Status
	store history.Store
	now   func() time.Time
	log   zerolog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(t *Tracker) { t.log = log }
}

// New creates a Tracker over store. The current state is restored from the
// last event with a known status, if any.
func New(store history.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store: store,
		now:   time.Now,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	events := store.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Known() {
			t.state = events[i].Status
			break
		}
	}
	return t
}

// NotifyStateChange records a new reading. Repeated readings of the same
// state are recorded too. The state is updated even if the store fails.
func (t *Tracker) NotifyStateChange(ctx context.Context, open bool) error {
	st := history.StatusOf(open)
	e := history.Event{Time: t.now().Unix(), Status: st}

	t.mu.Lock()
	t.state = st
	err := t.store.Append(ctx, e)
	t.mu.Unlock()

	if err != nil {
		return fmt.Errorf("record %s: %w", st, err)
	}
	t.log.Info().
		Stringer("state", st).
		Int64("time", e.Time).
		Msg("contact state changed")
	return nil
}

// State returns the current state; StatusUnknown before the first reading.
func (t *Tracker) State() history.Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// History returns a copy of the recorded events.
func (t *Tracker) History() []history.Event {
	return t.store.Events()
}

// InitialTime returns the time of the first recorded event, if any.
func (t *Tracker) InitialTime() (int64, bool) {
	return t.store.InitialTime()
}

// TimesOpened returns the transition count.
func (t *Tracker) TimesOpened() int64 {
	return history.TimesOpened(t.store.Events())
}

// OpenDuration returns the cumulative open time in seconds.
func (t *Tracker) OpenDuration() int64 {
	return history.OpenDuration(t.store.Events())
}

// ClosedDuration returns the cumulative closed time in seconds.
func (t *Tracker) ClosedDuration() int64 {
	return history.ClosedDuration(t.store.Events())
}

// LastActivation returns the offset in seconds from the initial time to the
// most recent state boundary.
func (t *Tracker) LastActivation() int64 {
	t.mu.RLock()
	events := t.store.Events()
	state := t.state
	t.mu.RUnlock()

	initial, ok := t.store.InitialTime()
	return history.LastActivation(events, initial, ok, state, t.now().Unix())
}

// Metrics returns all four metrics computed over one snapshot of the history.
func (t *Tracker) Metrics() history.Summary {
	t.mu.RLock()
	events := t.store.Events()
	state := t.state
	t.mu.RUnlock()

	initial, ok := t.store.InitialTime()
	return history.Summarize(events, initial, ok, state, t.now().Unix())
}
