// Command contact-sensor tracks a door or window contact, records every state
// change and publishes the derived usage metrics to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/sweeney/contact-sensor/internal/config"
	"github.com/sweeney/contact-sensor/internal/contact"
	"github.com/sweeney/contact-sensor/internal/gpio"
	"github.com/sweeney/contact-sensor/internal/history"
	"github.com/sweeney/contact-sensor/internal/logger"
	"github.com/sweeney/contact-sensor/internal/metrics"
	"github.com/sweeney/contact-sensor/internal/mqtt"
	"github.com/sweeney/contact-sensor/internal/status"
	"github.com/sweeney/contact-sensor/internal/web"
)

// mqttSourceTick drives heartbeats when readings arrive over MQTT instead of
// being polled.
const mqttSourceTick = time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "contact-sensor: %v\n", err)
		os.Exit(2)
	}

	log := logger.New(os.Stderr, cfg.LogLevel, logger.IsService())
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

func openStore(ctx context.Context, path string, log zerolog.Logger) (history.Store, error) {
	if path == "" {
		log.Warn().Msg("no history database configured, history is kept in memory only")
		return history.NewMemoryStore(), nil
	}
	s, err := history.OpenSQLite(ctx, path, log)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Int("events", s.Len()).Msg("history loaded")
	return s, nil
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx := context.Background()

	store, err := openStore(ctx, cfg.DB, log)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	sensor := contact.New(store, contact.WithLogger(log))
	serial := contact.SerialNumber(cfg.Name, cfg.ListenAddress())

	mqttOpts := mqtt.Options{
		Broker:      cfg.Broker,
		ClientID:    cfg.ClientID,
		TopicPrefix: cfg.TopicPrefix,
		BufferSize:  cfg.BufferSize,
		Log:         log,
	}

	// Initialize the contact source
	var (
		reader   gpio.Reader
		readings <-chan bool
		tickRate = cfg.Poll
	)
	switch cfg.Source {
	case config.SourceGPIO:
		r, err := gpio.NewRealReader(cfg.Chip, cfg.Pin, cfg.ActiveLow)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer r.Close()

		if cfg.PrintState {
			open, err := r.Read()
			if err != nil {
				return fmt.Errorf("read gpio: %w", err)
			}
			fmt.Printf("%s: %s\n", cfg.Name, history.StatusOf(open))
			return nil
		}
		reader = r

	case config.SourceMQTT:
		if cfg.PrintState {
			fmt.Printf("%s: %s (last recorded)\n", cfg.Name, sensor.State())
			return nil
		}
		sub, err := mqtt.NewSubscriber(mqttOpts, cfg.ListenTopic)
		if err != nil {
			return fmt.Errorf("init subscriber: %w", err)
		}
		defer sub.Close()
		readings = sub.Readings()
		tickRate = mqttSourceTick
	}

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(mqttOpts)
	defer publisher.Close()

	m := metrics.New(prometheus.DefaultRegisterer, sensor)

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Name:        cfg.Name,
		Serial:      serial,
		Source:      cfg.Source,
		Listen:      cfg.ListenAddress(),
		PollMs:      cfg.Poll.Milliseconds(),
		DebounceMs:  cfg.Debounce.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		TopicPrefix: cfg.TopicPrefix,
		HTTPAddr:    cfg.HTTP,
	}, sensor)
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		m.ObservePublishError("system")
		log.Warn().Err(err).Msg("failed to publish startup event")
	} else {
		log.Info().Msg("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker,
			web.WithHistory(sensor),
			web.WithGatherer(prometheus.DefaultGatherer),
			web.WithLogger(log),
		)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTP).Msg("http status server listening")
	}

	log.Info().
		Str("name", cfg.Name).
		Str("serial", serial).
		Str("source", cfg.Source).
		Str("listen", cfg.ListenAddress()).
		Dur("poll", cfg.Poll).
		Dur("debounce", cfg.Debounce).
		Dur("heartbeat", cfg.Heartbeat).
		Str("broker", cfg.Broker).
		Msg("started")

	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		name:       cfg.Name,
		reader:     reader,
		readings:   readings,
		sensor:     sensor,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		metrics:    m,
		debounce:   cfg.Debounce,
		heartbeat:  cfg.Heartbeat,
		now:        time.Now,
		log:        log,
	}
	return l.run(ctx, ticker.C, sigCh)
}
