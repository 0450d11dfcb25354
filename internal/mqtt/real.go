package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ggtrigg/touch-switch/internal/logic"
)

// DefaultBacklog is the number of messages held while the broker is unreachable.
const DefaultBacklog = 256

// Config holds broker connection settings.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Backlog  int
}

// RealPublisher publishes to an actual MQTT broker.
// Messages published while disconnected are queued and replayed on reconnect.
type RealPublisher struct {
	client paho.Client

	mu      sync.Mutex
	backlog *backlog
}

// NewRealPublisher creates a publisher for the given broker. Connection is
// retried in the background, so a missing broker never blocks startup.
func NewRealPublisher(cfg Config) *RealPublisher {
	if cfg.ClientID == "" {
		cfg.ClientID = "touch-switch"
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = DefaultBacklog
	}

	p := &RealPublisher{backlog: newBacklog(cfg.Backlog)}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	pending := p.backlog.drain()
	p.mu.Unlock()

	log.Printf("mqtt: connected, replaying %d buffered messages", len(pending))
	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

// send publishes without waiting for delivery, or queues while disconnected.
func (p *RealPublisher) send(topic string, qos byte, retained bool, payload []byte) {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.backlog.push(pendingMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	token := p.client.Publish(topic, qos, retained, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: publish to %s timed out", topic)
			return
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: publish to %s: %v", topic, err)
		}
	}()
}

// Publish sends a touch event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	p.send(Topic, 0, false, payload)
	return nil
}

// PublishBrightness sends the light payload, retained so new subscribers
// see the current level.
func (p *RealPublisher) PublishBrightness(payload []byte) error {
	p.send(TopicLight, 0, true, payload)
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker and waits
// for delivery.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.backlog.push(pendingMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
		p.mu.Unlock()
		return fmt.Errorf("not connected, %s queued", event.Event)
	}

	// QoS 1 (at-least-once) - we want lifecycle events delivered
	token := p.client.Publish(TopicSystem, 1, event.Retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}

	return nil
}

// IsConnected reports whether the broker connection is open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
