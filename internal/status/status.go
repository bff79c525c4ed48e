// Package status provides a thread-safe status tracker for the contact-sensor daemon.
// It is read by the HTTP handlers and the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/contact-sensor/internal/history"
	"github.com/sweeney/contact-sensor/internal/logic"
)

// Source provides the contact state and derived metrics at snapshot time.
type Source interface {
	State() history.Status
	Metrics() history.Summary
	InitialTime() (int64, bool)
}

// NetworkInfo contains network state as reported by the host.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Name        string
	Serial      string
	Source      string
	Listen      string
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	TopicPrefix string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         history.Status
	Metrics       history.Summary
	InitialTime   int64
	HasInitial    bool
	Baselined     bool
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	src  Source
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
// src may be nil, in which case snapshots carry no contact data.
func NewTracker(startTime time.Time, cfg Config, src Source) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		src: src,
		now: time.Now,
	}
}

// Update sets the input baseline status and detector event counts.
func (t *Tracker) Update(baselined bool, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Baselined = baselined
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call and the
// contact metrics are derived at that moment.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()

	s.Now = t.now()
	if t.src != nil {
		s.State = t.src.State()
		s.Metrics = t.src.Metrics()
		s.InitialTime, s.HasInitial = t.src.InitialTime()
	}
	return s
}
