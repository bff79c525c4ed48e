package logic

import (
	"time"

	"github.com/sweeney/contact-sensor/internal/history"
)

// Detector tracks the contact state and detects debounced transitions.
type Detector struct {
	debounceDuration time.Duration
	ch               ChannelState
	startTime        time.Time
	eventCounts      EventCounts
	lastHeartbeat    time.Time
}

// NewDetector creates a new transition detector with the given debounce duration.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(debounceDuration time.Duration, startTime time.Time) *Detector {
	return &Detector{
		debounceDuration: debounceDuration,
		startTime:        startTime,
		lastHeartbeat:    startTime,
	}
}

// Process takes a new input sample and returns the transition, if any.
// Events are only returned after baseline is established.
func (d *Detector) Process(input Input) *Event {
	newState := history.StatusOf(input.Open)

	// First time seeing the input
	if !d.ch.Baselined {
		if d.ch.Pending != newState {
			// Start observing, or restart if the state changed during baseline
			d.ch.Pending = newState
			d.ch.PendingSince = input.Time
			return nil
		}
		if input.Time.Sub(d.ch.PendingSince) >= d.debounceDuration {
			d.ch.Stable = newState
			d.ch.Baselined = true
			d.ch.Pending = history.StatusUnknown
		}
		return nil
	}

	if newState == d.ch.Stable {
		// Bounce back to stable, clear any pending
		d.ch.Pending = history.StatusUnknown
		return nil
	}

	if d.ch.Pending != newState {
		d.ch.Pending = newState
		d.ch.PendingSince = input.Time
		return nil
	}

	if input.Time.Sub(d.ch.PendingSince) < d.debounceDuration {
		return nil
	}

	d.ch.Stable = newState
	d.ch.Pending = history.StatusUnknown

	e := &Event{
		Timestamp: input.Time,
		Type:      eventTypeFor(newState),
		State:     newState,
	}
	if e.Type == EventOpened {
		d.eventCounts.Opened++
	} else {
		d.eventCounts.Closed++
	}
	return e
}

// Apply takes a reading that is already debounced upstream, such as a state
// telegram from the bus. The first reading establishes the baseline; later
// readings return an event only when the state differs from the stable one.
func (d *Detector) Apply(input Input) *Event {
	newState := history.StatusOf(input.Open)

	if !d.ch.Baselined {
		d.ch.Stable = newState
		d.ch.Baselined = true
		return nil
	}
	d.ch.Pending = history.StatusUnknown
	if newState == d.ch.Stable {
		return nil
	}

	d.ch.Stable = newState
	e := &Event{
		Timestamp: input.Time,
		Type:      eventTypeFor(newState),
		State:     newState,
	}
	if e.Type == EventOpened {
		d.eventCounts.Opened++
	} else {
		d.eventCounts.Closed++
	}
	return e
}

func eventTypeFor(s history.Status) EventType {
	if s == history.StatusOpen {
		return EventOpened
	}
	return EventClosed
}

// IsBaselined returns whether the detector has established a baseline.
func (d *Detector) IsBaselined() bool {
	return d.ch.Baselined
}

// CurrentState returns the current stable state.
func (d *Detector) CurrentState() history.Status {
	return d.ch.Stable
}

// EventCountsSnapshot returns a copy of the event counts.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.ch.Baselined {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
	}
}
