package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/contact-sensor/internal/contact"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Name          string       `json:"name"`
	Serial        string       `json:"serial"`
	Contact       ContactJSON  `json:"contact"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ContactJSON reports the contact state and the metrics derived from its history.
type ContactJSON struct {
	State           string                        `json:"state"`
	TimesOpened     int64                         `json:"times_opened"`
	OpenDuration    int64                         `json:"open_duration"`
	ClosedDuration  int64                         `json:"closed_duration"`
	LastActivation  int64                         `json:"last_activation"`
	InitialTime     string                        `json:"initial_time,omitempty"`
	Characteristics []contact.CharacteristicValue `json:"characteristics"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of detector event counts since startup.
type CountsJSON struct {
	Opened int `json:"opened"`
	Closed int `json:"closed"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Source      string `json:"source"`
	Listen      string `json:"listen"`
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	TopicPrefix string `json:"topic_prefix"`
	HTTPAddr    string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	c := ContactJSON{
		State:           snap.State.String(),
		TimesOpened:     snap.Metrics.TimesOpened,
		OpenDuration:    snap.Metrics.OpenDuration,
		ClosedDuration:  snap.Metrics.ClosedDuration,
		LastActivation:  snap.Metrics.LastActivation,
		Characteristics: contact.Characteristics(snap.Metrics),
	}
	if snap.HasInitial {
		c.InitialTime = time.Unix(snap.InitialTime, 0).UTC().Format(time.RFC3339)
	}

	inner := StatusInner{
		Name:          snap.Config.Name,
		Serial:        snap.Config.Serial,
		Contact:       c,
		Ready:         snap.Baselined,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Opened: snap.Counts.Opened,
			Closed: snap.Counts.Closed,
		},
		Config: ConfigJSON{
			Source:      snap.Config.Source,
			Listen:      snap.Config.Listen,
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			TopicPrefix: snap.Config.TopicPrefix,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
