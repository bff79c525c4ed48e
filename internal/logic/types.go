// Package logic contains the debounced change detector for the contact input.
// This package has NO I/O dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"time"

	"github.com/sweeney/contact-sensor/internal/history"
)

// EventType represents a contact transition.
type EventType string

const (
	EventOpened EventType = "OPENED"
	EventClosed EventType = "CLOSED"
)

// Event represents a debounced transition to be recorded and published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	State     history.Status
}

// ChannelState tracks debounce state for the contact input.
type ChannelState struct {
	// Current stable (debounced) state
	Stable history.Status
	// Pending state during debounce; StatusUnknown when nothing is pending
	Pending history.Status
	// Time when pending state was first observed
	PendingSince time.Time
	// Whether we have established a baseline
	Baselined bool
}

// Input represents a single sample of the contact.
type Input struct {
	Open bool // true = open (already inverted from raw GPIO if active-low)
	Time time.Time
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Opened int
	Closed int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
