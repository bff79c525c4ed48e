package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	connectRetryInterval = 5 * time.Second
	publishTimeout       = 5 * time.Second
	disconnectQuiesceMs  = 1000
	defaultBufferSize    = 100
)

// Options configures a RealPublisher or Subscriber.
type Options struct {
	Broker      string
	ClientID    string // empty derives a unique id
	TopicPrefix string
	BufferSize  int // messages held while disconnected
	Log         zerolog.Logger
}

// ClientID returns id, or a unique "contact-sensor-xxxxxxxx" id when empty.
func ClientID(id string) string {
	if id != "" {
		return id
	}
	return "contact-sensor-" + uuid.NewString()[:8]
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	events string
	system string
	log    zerolog.Logger

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher for the given broker. The connection
// is established in the background and retried until it succeeds.
func NewRealPublisher(o Options) *RealPublisher {
	prefix := o.TopicPrefix
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	size := o.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}

	p := &RealPublisher{
		events: EventsTopic(prefix),
		system: SystemTopic(prefix),
		log:    o.Log,
		buf:    newRingBuffer(size, o.Log),
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(ClientID(o.ClientID)).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectRetryInterval).
		SetWill(p.system, string(WillPayload()), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.Warn().Err(err).Msg("mqtt connection lost")
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func (p *RealPublisher) onConnect(_ paho.Client) {
	p.log.Info().Msg("mqtt connected")

	p.mu.Lock()
	pending := p.buf.drainAll()
	p.mu.Unlock()

	for _, m := range pending {
		if err := p.send(m); err != nil {
			p.log.Warn().Err(err).Str("topic", m.topic).Msg("replay buffered message failed")
		}
	}
	if len(pending) > 0 {
		p.log.Info().Int("count", len(pending)).Msg("replayed buffered messages")
	}

	ev := SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}
	if err := p.PublishSystem(ev); err != nil {
		p.log.Warn().Err(err).Msg("publish reconnected event failed")
	}
}

// Publish sends a contact event to the MQTT broker.
func (p *RealPublisher) Publish(event ContactEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{topic: p.events, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.publish(bufferedMsg{topic: p.system, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(m bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buf.push(m)
		p.mu.Unlock()
		return nil
	}
	return p.send(m)
}

func (p *RealPublisher) send(m bufferedMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(disconnectQuiesceMs)
	return nil
}
