package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/sonar-array/internal/sonar"
)

// DefaultBufferSize is the number of readings held while the broker is unreachable.
const DefaultBufferSize = 512

// RealPublisher publishes to an actual MQTT broker.
// Readings published while disconnected are buffered and replayed on reconnect.
type RealPublisher struct {
	client  paho.Client
	machine string
	topic   string
	system  string
	log     *slog.Logger

	mu      sync.Mutex
	backlog *backlog
}

// NewRealPublisher creates a publisher for the named array connected to broker.
// The broker's last-will message marks the array OFFLINE on the system topic.
func NewRealPublisher(broker, machine string, log *slog.Logger) (*RealPublisher, error) {
	if log == nil {
		log = slog.Default()
	}
	p := &RealPublisher{
		machine: machine,
		topic:   ReadingsTopic(machine),
		system:  SystemTopic(machine),
		log:     log.With("component", "mqtt"),
	}
	p.backlog = newBacklog(DefaultBufferSize, p.log)

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "LWT"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("sonar-array-"+machine).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(p.system, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.replay() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.Warn("connection lost", "err", err)
		})

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

// Publish sends a reading to the MQTT broker, or keeps it in the backlog while
// disconnected. It does not wait for delivery; failures are logged.
func (p *RealPublisher) Publish(r sonar.Reading) error {
	if !p.client.IsConnected() {
		p.mu.Lock()
		p.backlog.add(r)
		p.mu.Unlock()
		return nil
	}

	payload, err := FormatPayload(p.machine, r)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	token := p.client.Publish(p.topic, 0, false, payload)
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			p.log.Warn("publish reading", "sensor", r.Sensor, "err", err)
		}
	}()
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	if err := p.send(p.system, 1, event.Retained, payload); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

func (p *RealPublisher) send(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// replay runs on the paho goroutine after every (re)connect.
func (p *RealPublisher) replay() {
	p.mu.Lock()
	readings, dropped := p.backlog.take()
	p.mu.Unlock()

	if len(readings) == 0 {
		return
	}
	p.log.Info("replaying buffered readings", "count", len(readings), "dropped", dropped)
	for _, r := range readings {
		payload, err := FormatPayload(p.machine, r)
		if err != nil {
			p.log.Warn("replay format", "err", err)
			continue
		}
		if err := p.send(p.topic, 0, false, payload); err != nil {
			p.log.Warn("replay failed", "err", err)
			return
		}
	}
}

// Buffered returns the number of readings waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backlog.len()
}

// IsConnected reports whether the client currently holds a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
