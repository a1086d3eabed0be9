package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/sweeney/autoclave-monitor/internal/logic"
)

// Options configures a RealPublisher.
type Options struct {
	Broker         string
	ClientID       string
	BufferSize     int           // messages kept while offline; DefaultBufferSize if zero
	ConnectTimeout time.Duration // initial connect wait before falling back to buffering
	PublishTimeout time.Duration
	Logger         logrus.FieldLogger
}

// RealPublisher publishes to an actual MQTT broker. Cycle records and system
// events published while the connection is down are buffered and replayed
// on reconnect; telemetry is dropped.
type RealPublisher struct {
	client  paho.Client
	log     logrus.FieldLogger
	timeout time.Duration

	mu        sync.Mutex
	buf       *ringBuffer
	connected bool // set after the first successful connect
}

// NewRealPublisher creates a publisher for the given broker. An unreachable
// broker is not an error: the client keeps retrying in the background.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	if opts.Broker == "" {
		return nil, errors.New("mqtt broker address is required")
	}
	if opts.ClientID == "" {
		opts.ClientID = "autoclave-monitor"
	}
	if opts.BufferSize == 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.PublishTimeout == 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	log := opts.Logger.WithFields(logrus.Fields{"component": "mqtt", "broker": opts.Broker})

	will, err := FormatSystemPayload(SystemEvent{Event: EventOffline})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	p := &RealPublisher{
		log:     log,
		timeout: opts.PublishTimeout,
		buf:     newRingBuffer(opts.BufferSize, log),
	}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.WithError(err).Warn("connection lost, buffering until reconnected")
		})

	p.client = paho.NewClient(clientOpts)
	token := p.client.Connect()
	if !token.WaitTimeout(opts.ConnectTimeout) {
		log.Warn("broker not reachable yet, buffering until connected")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// onConnect runs on a paho goroutine after every successful (re)connect.
func (p *RealPublisher) onConnect(_ paho.Client) {
	p.mu.Lock()
	msgs, dropped := p.buf.drain()
	reconnect := p.connected
	p.connected = true
	p.mu.Unlock()

	if reconnect {
		p.log.Info("reconnected to broker")
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: EventReconnected})
		if err := p.send(pending{topic: TopicSystem, payload: payload, qos: 1, retained: true}); err != nil {
			p.log.WithError(err).Warn("publish reconnect event failed")
		}
	} else {
		p.log.Info("connected to broker")
	}

	if len(msgs) == 0 {
		return
	}
	p.log.WithFields(logrus.Fields{"replayed": len(msgs), "dropped": dropped}).Info("replaying buffered messages")
	for _, msg := range msgs {
		if err := p.send(msg); err != nil {
			p.log.WithError(err).WithField("topic", msg.topic).Warn("replay failed")
		}
	}
}

func (p *RealPublisher) send(msg pending) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish to %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.topic, err)
	}
	return nil
}

// publish sends msg now or, when offline and bufferable, queues it.
func (p *RealPublisher) publish(msg pending, bufferable bool) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		if bufferable {
			p.buf.push(msg)
		}
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.send(msg)
}

// PublishCycle sends a finalized cycle record (QoS 1, not retained).
func (p *RealPublisher) PublishCycle(c logic.Cycle) error {
	payload, err := FormatCyclePayload(c)
	if err != nil {
		return fmt.Errorf("format cycle payload: %w", err)
	}
	return p.publish(pending{topic: TopicCycles, payload: payload, qos: 1}, true)
}

// PublishTelemetry sends a reading (QoS 0). Readings are not buffered.
func (p *RealPublisher) PublishTelemetry(t Telemetry) error {
	payload, err := FormatTelemetryPayload(t)
	if err != nil {
		return fmt.Errorf("format telemetry payload: %w", err)
	}
	return p.publish(pending{topic: TopicTelemetry, payload: payload}, false)
}

// PublishSystem sends a system lifecycle event (QoS 1).
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(pending{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}, true)
}

// Buffered reports how many messages are waiting for the broker.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// IsConnected reports whether the broker connection is open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Name identifies the publisher in logs and metrics.
func (p *RealPublisher) Name() string { return "mqtt" }

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}
