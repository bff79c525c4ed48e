// Package history holds the change log of a contact sensor and the pure
// derivations computed from it. The aggregation functions have no
// dependencies on time, I/O or the host: callers pass in everything.
package history

import "math"

// NoTime marks an event whose time was not recorded. Zero is a valid time.
const NoTime int64 = math.MinInt64

// Status is the recorded state of the contact at one point in time.
// The zero value is StatusUnknown, which every derivation skips.
type Status int8

const (
	StatusUnknown Status = iota
	StatusClosed
	StatusOpen
)

// StatusOf converts a raw contact reading (true = open).
func StatusOf(open bool) Status {
	if open {
		return StatusOpen
	}
	return StatusClosed
}

// Known reports whether s is a defined reading.
func (s Status) Known() bool {
	return s == StatusOpen || s == StatusClosed
}

// Open reports whether s is StatusOpen.
func (s Status) Open() bool {
	return s == StatusOpen
}

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ParseStatus is the inverse of String. Anything unrecognised is StatusUnknown.
func ParseStatus(s string) Status {
	switch s {
	case "OPEN":
		return StatusOpen
	case "CLOSED":
		return StatusClosed
	default:
		return StatusUnknown
	}
}

// Event is one timestamped observation. Time is seconds since the Unix epoch,
// or NoTime when the time was not recorded.
type Event struct {
	Time   int64  `json:"time"`
	Status Status `json:"status"`
}

// Known reports whether the event carries a defined status.
func (e Event) Known() bool {
	return e.Status.Known()
}

// HasTime reports whether the event carries a time.
func (e Event) HasTime() bool {
	return e.Time != NoTime
}

// Complete reports whether the event carries both a status and a time.
func (e Event) Complete() bool {
	return e.Status.Known() && e.HasTime()
}

// Summary holds the four derived metrics at one instant. Durations and the
// last activation offset are in seconds.
type Summary struct {
	TimesOpened    int64 `json:"times_opened"`
	OpenDuration   int64 `json:"open_duration"`
	ClosedDuration int64 `json:"closed_duration"`
	LastActivation int64 `json:"last_activation"`
}

// MarshalText encodes the status as its String form.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status written by MarshalText.
func (s *Status) UnmarshalText(b []byte) error {
	*s = ParseStatus(string(b))
	return nil
}
