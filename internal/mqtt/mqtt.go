// Package mqtt provides MQTT publishing and subscribing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/contact-sensor/internal/history"
	"github.com/sweeney/contact-sensor/internal/logic"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "home/contact-sensor"

// EventsTopic is the topic for contact events under prefix.
func EventsTopic(prefix string) string {
	return prefix + "/events"
}

// SystemTopic is the topic for system lifecycle events under prefix.
func SystemTopic(prefix string) string {
	return prefix + "/system"
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a contact event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event ContactEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// ContactEvent is a transition together with the metrics derived right after
// it was recorded.
type ContactEvent struct {
	Name    string
	Event   logic.Event
	Metrics history.Summary
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "RECONNECTED", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Contact ContactPayload `json:"contact"`
}

// ContactPayload contains the contact event details.
type ContactPayload struct {
	Name           string `json:"name,omitempty"`
	Timestamp      string `json:"timestamp"`
	Event          string `json:"event"`
	State          string `json:"state"`
	TimesOpened    int64  `json:"times_opened"`
	OpenDuration   int64  `json:"open_duration"`
	ClosedDuration int64  `json:"closed_duration"`
	LastActivation int64  `json:"last_activation"`
}

// FormatPayload creates the JSON payload for a contact event.
func FormatPayload(event ContactEvent) ([]byte, error) {
	payload := Payload{
		Contact: ContactPayload{
			Name:           event.Name,
			Timestamp:      event.Event.Timestamp.UTC().Format(time.RFC3339),
			Event:          string(event.Event.Type),
			State:          event.Event.State.String(),
			TimesOpened:    event.Metrics.TimesOpened,
			OpenDuration:   event.Metrics.OpenDuration,
			ClosedDuration: event.Metrics.ClosedDuration,
			LastActivation: event.Metrics.LastActivation,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// WillPayload is the last-will message the broker publishes if the
// connection drops without a clean disconnect.
func WillPayload() []byte {
	data, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "CONNECTION_LOST"})
	return data
}
