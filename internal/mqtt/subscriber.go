package mqtt

import (
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const (
	readingsBuffer = 16

	// deliverTimeout bounds how long a reading waits for the run loop once
	// the buffer is full. Waiting holds up the broker client's delivery.
	deliverTimeout = 5 * time.Second
)

// ParseContactPayload interprets a state payload from the listen topic.
// Accepted forms (case-insensitive): 1/0, true/false, open/closed, on/off.
func ParseContactPayload(b []byte) (open bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "1", "true", "open", "opened", "on":
		return true, true
	case "0", "false", "closed", "close", "off":
		return false, true
	default:
		return false, false
	}
}

// Subscriber listens on a topic for contact state changes, the network
// counterpart of the GPIO reader.
type Subscriber struct {
	client   paho.Client
	topic    string
	log      zerolog.Logger
	readings chan bool
	timeout  time.Duration
}

// NewSubscriber connects to the broker and subscribes to topic. The
// subscription is renewed on every reconnect.
func NewSubscriber(o Options, topic string) (*Subscriber, error) {
	if topic == "" {
		return nil, fmt.Errorf("subscribe: empty listen topic")
	}

	s := &Subscriber{
		topic:    topic,
		log:      o.Log,
		readings: make(chan bool, readingsBuffer),
		timeout:  deliverTimeout,
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(ClientID(o.ClientID) + "-listen").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectRetryInterval).
		SetOnConnectHandler(s.onConnect)

	s.client = paho.NewClient(opts)
	s.client.Connect()
	return s, nil
}

func (s *Subscriber) onConnect(c paho.Client) {
	token := c.Subscribe(s.topic, 1, s.handle)
	if !token.WaitTimeout(publishTimeout) {
		s.log.Warn().Str("topic", s.topic).Msg("subscribe timeout")
		return
	}
	if err := token.Error(); err != nil {
		s.log.Error().Err(err).Str("topic", s.topic).Msg("subscribe failed")
		return
	}
	s.log.Info().Str("topic", s.topic).Msg("listening for contact state")
}

func (s *Subscriber) handle(_ paho.Client, m paho.Message) {
	s.deliver(m.Payload(), time.Now())
}

func (s *Subscriber) deliver(payload []byte, at time.Time) {
	open, ok := ParseContactPayload(payload)
	if !ok {
		s.log.Warn().Str("topic", s.topic).Bytes("payload", payload).Msg("ignoring unrecognised contact payload")
		return
	}
	select {
	case s.readings <- open:
		return
	default:
	}

	s.log.Debug().Bool("open", open).Msg("readings buffer full, waiting for consumer")
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case s.readings <- open:
	case <-timer.C:
		s.log.Error().Time("at", at).Bool("open", open).Dur("waited", s.timeout).Msg("reading dropped, consumer stalled")
	}
}

// Readings delivers parsed states in arrival order.
func (s *Subscriber) Readings() <-chan bool {
	return s.readings
}

// IsConnected reports whether the broker connection is up.
func (s *Subscriber) IsConnected() bool {
	return s.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (s *Subscriber) Close() error {
	s.client.Disconnect(disconnectQuiesceMs)
	return nil
}
