package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/freezerx/freezerd/internal/engine"
)

// bufferCapacity bounds how many messages are held while the broker is
// unreachable.
const bufferCapacity = 256

// RealPublisher publishes to an actual MQTT broker. Messages published
// while disconnected are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	log    *logrus.Entry

	mu     sync.Mutex
	buffer *ringBuffer

	onConfig func(engine.Config)
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(broker string, log *logrus.Entry) (*RealPublisher, error) {
	p := &RealPublisher{
		log:    log,
		buffer: newRingBuffer(bufferCapacity),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("freezerd").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(p.onConnect)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Publish sends a state-change event to the MQTT broker.
func (p *RealPublisher) Publish(event Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.send(Topic, payload, 0, false)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return p.send(TopicSystem, payload, 1, event.Retained)
}

func (p *RealPublisher) send(topic string, payload []byte, qos byte, retained bool) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buffer.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		n := p.buffer.len()
		p.mu.Unlock()
		p.log.WithField("buffered", n).Debug("broker unreachable, message buffered")
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// SubscribeConfigSet registers a handler for remote configuration
// commands. The handler receives decoded but unvalidated parameters.
func (p *RealPublisher) SubscribeConfigSet(handler func(engine.Config)) error {
	p.onConfig = handler
	return p.subscribeConfigSet()
}

func (p *RealPublisher) subscribeConfigSet() error {
	token := p.client.Subscribe(TopicConfigSet, 1, func(_ paho.Client, msg paho.Message) {
		var payload ConfigSetPayload
		if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
			p.log.WithError(err).Warn("malformed config command, ignoring")
			return
		}
		p.onConfig(payload.Config())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicConfigSet, err)
	}
	return nil
}

// onConnect re-subscribes and replays anything buffered during the
// outage.
func (p *RealPublisher) onConnect(client paho.Client) {
	if p.onConfig != nil {
		if err := p.subscribeConfigSet(); err != nil {
			p.log.WithError(err).Warn("config command re-subscribe failed")
		}
	}

	p.mu.Lock()
	pending := p.buffer.drainAll()
	p.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	p.log.WithField("count", len(pending)).Info("replaying buffered messages")
	for _, msg := range pending {
		token := client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if !token.WaitTimeout(5 * time.Second) {
			p.log.Warn("replay timeout, dropping remaining buffered messages")
			return
		}
		if err := token.Error(); err != nil {
			p.log.WithError(err).Warn("replay failed")
			return
		}
	}
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
