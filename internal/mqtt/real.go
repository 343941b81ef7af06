package mqtt

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/humidifier/internal/logic"
)

var errTokenTimeout = errors.New("timeout")

// RealPublisher publishes to an actual MQTT broker and feeds command topic
// messages to a callback. Messages published while the connection is down
// are buffered and replayed on reconnect.
type RealPublisher struct {
	client    paho.Client
	onCommand func(logic.Event)

	mu        sync.Mutex
	buf       *ringBuffer
	connected int // number of successful connects
}

// NewRealPublisher creates a publisher for the given broker. onCommand, if
// non-nil, receives every parsed command; it is called from paho's goroutine
// and must not block. An unreachable broker is not fatal: the client keeps
// retrying in the background and publishes are buffered meanwhile.
func NewRealPublisher(broker, clientID string, onCommand func(logic.Event)) (*RealPublisher, error) {
	p := &RealPublisher{
		onCommand: onCommand,
		buf:       newRingBuffer(DefaultBufferSize),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "connection lost",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.handleConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, buffering until connected", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func (p *RealPublisher) handleConnect(c paho.Client) {
	p.mu.Lock()
	p.connected++
	reconnect := p.connected > 1
	pending, dropped := p.buf.drainAll()
	p.mu.Unlock()

	log.Printf("mqtt: connected")

	if err := p.subscribe(c); err != nil {
		log.Printf("mqtt: commands unavailable: %v", err)
	}

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		c.Publish(TopicSystem, 1, true, payload)
	}

	if len(pending) > 0 {
		log.Printf("mqtt: replaying %d buffered messages (%d dropped)", len(pending), dropped)
	}
	for _, m := range pending {
		token := c.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: replay to %s timed out", m.topic)
		}
	}
}

// subscriber is the part of paho.Client used for the command subscription.
type subscriber interface {
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

func (p *RealPublisher) subscribe(c subscriber) error {
	if err := waitToken(c.Subscribe(TopicCommand, 1, p.handleCommand), 5*time.Second); err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicCommand, err)
	}
	return nil
}

// waitToken waits up to timeout for token and returns its error.
func waitToken(token paho.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return errTokenTimeout
	}
	return token.Error()
}

func (p *RealPublisher) handleCommand(_ paho.Client, msg paho.Message) {
	e, err := ParseCommand(msg.Payload())
	if err != nil {
		log.Printf("mqtt: ignoring command %q: %v", msg.Payload(), err)
		return
	}
	if p.onCommand != nil {
		p.onCommand(e)
	}
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}

	if err := waitToken(p.client.Publish(topic, qos, retained, payload), 5*time.Second); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Publish sends a status transition to the MQTT broker.
func (p *RealPublisher) Publish(tr logic.Transition) error {
	payload, err := FormatPayload(tr)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 1: transitions drive downstream automations.
	return p.publish(TopicEvents, 1, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	if err := p.publish(TopicSystem, 1, event.Retained, payload); err != nil {
		return fmt.Errorf("system: %w", err)
	}
	return nil
}

// IsConnected reports whether the broker connection is currently open.
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
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
