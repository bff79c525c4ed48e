package main

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/contact-sensor/internal/contact"
	"github.com/sweeney/contact-sensor/internal/gpio"
	"github.com/sweeney/contact-sensor/internal/history"
	"github.com/sweeney/contact-sensor/internal/logic"
	"github.com/sweeney/contact-sensor/internal/metrics"
	"github.com/sweeney/contact-sensor/internal/mqtt"
	"github.com/sweeney/contact-sensor/internal/status"
)

// loop serializes every input, tick and signal onto one goroutine.
// Exactly one of reader and readings is set.
type loop struct {
	name       string
	reader     gpio.Reader
	readings   <-chan bool
	sensor     *contact.Tracker
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	metrics    *metrics.Metrics
	debounce   time.Duration
	heartbeat  time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

func (l *loop) run(ctx context.Context, tick <-chan time.Time, sig <-chan os.Signal) error {
	detector := logic.NewDetector(l.debounce, l.now())

	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil

		case open, ok := <-l.readings:
			if !ok {
				l.readings = nil
				continue
			}
			t := l.now()
			// Every reading is recorded, repeats included.
			l.record(ctx, open)
			if event := detector.Apply(logic.Input{Open: open, Time: t}); event != nil {
				l.publish(*event)
			}
			l.refresh(detector)

		case <-tick:
			t := l.now()
			if l.reader != nil {
				open, err := l.reader.Read()
				if err != nil {
					l.log.Warn().Err(err).Msg("gpio read error")
					l.metrics.ObserveReadError()
					continue
				}

				baselined := detector.IsBaselined()
				event := detector.Process(logic.Input{Open: open, Time: t})
				if !baselined && detector.IsBaselined() {
					l.seed(ctx, detector.CurrentState())
				}
				if event != nil {
					l.record(ctx, event.State.Open())
					l.publish(*event)
				}
			}

			if !detector.IsBaselined() {
				// Still waiting for baseline
				continue
			}

			if hb := detector.CheckHeartbeat(t, l.heartbeat); hb != nil {
				l.sendHeartbeat(detector, hb)
			}
			l.refresh(detector)
		}
	}
}

// seed records the baseline reading when it differs from the state restored
// from history, so the first notification reflects the actual contact.
func (l *loop) seed(ctx context.Context, st history.Status) {
	l.log.Info().Stringer("state", st).Msg("baseline established")
	if st == l.sensor.State() {
		return
	}
	l.record(ctx, st.Open())
}

func (l *loop) record(ctx context.Context, open bool) {
	if err := l.sensor.NotifyStateChange(ctx, open); err != nil {
		l.log.Error().Err(err).Msg("failed to persist state change")
		return
	}
	l.metrics.ObserveStateChange(history.StatusOf(open))
}

func (l *loop) publish(event logic.Event) {
	ce := mqtt.ContactEvent{
		Name:    l.name,
		Event:   event,
		Metrics: l.sensor.Metrics(),
	}
	l.log.Info().
		Str("event", string(event.Type)).
		Int64("times_opened", ce.Metrics.TimesOpened).
		Int64("open_duration", ce.Metrics.OpenDuration).
		Int64("closed_duration", ce.Metrics.ClosedDuration).
		Int64("last_activation", ce.Metrics.LastActivation).
		Msg("contact event")
	if err := l.publisher.Publish(ce); err != nil {
		// Don't crash on publish failure
		l.metrics.ObservePublishError("event")
		l.log.Warn().Err(err).Msg("publish error")
	}
}

func (l *loop) sendHeartbeat(detector *logic.Detector, hb *logic.HeartbeatData) {
	l.log.Info().
		Dur("uptime", hb.Uptime).
		Int("opened", hb.Counts.Opened).
		Int("closed", hb.Counts.Closed).
		Msg("heartbeat")

	// Refresh network info for heartbeat
	if net := readNetworkInfo(); net != nil {
		l.tracker.SetNetwork(net)
	}
	l.refresh(detector)
	snap := l.tracker.Snapshot()

	event := mqtt.SystemEvent{
		Timestamp:  hb.Timestamp,
		Event:      "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.metrics.ObservePublishError("system")
		l.log.Warn().Err(err).Msg("heartbeat publish error")
	}
}

// refresh pushes detector and connection state to the status tracker for
// HTTP consumers.
func (l *loop) refresh(detector *logic.Detector) {
	l.tracker.Update(detector.IsBaselined(), detector.EventCountsSnapshot())
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

func (l *loop) shutdown(s os.Signal) {
	l.log.Info().Stringer("signal", s).Msg("shutting down")
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}

	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
	snap := l.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  l.now(),
		Event:      "SHUTDOWN",
		Reason:     signalName,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.metrics.ObservePublishError("system")
		l.log.Warn().Err(err).Msg("failed to publish shutdown event")
	} else {
		l.log.Info().Msg("published shutdown event")
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
