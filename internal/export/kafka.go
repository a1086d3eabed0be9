// Package export writes finalized cycle records to Kafka.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sweeney/autoclave-monitor/internal/logic"
	"github.com/sweeney/autoclave-monitor/internal/status"
)

// DefaultTopic receives cycle records when no topic is configured.
const DefaultTopic = "autoclave.cycles"

// messageWriter is the subset of *kafka.Writer the exporter needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Options configures a KafkaExporter.
type Options struct {
	Brokers []string
	Topic   string
	// Timeout bounds a single write, which runs on the tick loop.
	Timeout time.Duration
}

// KafkaExporter publishes each cycle as one JSON message keyed by cycle ID,
// so every record for a cycle lands on the same partition.
type KafkaExporter struct {
	w       messageWriter
	timeout time.Duration
}

// NewKafkaExporter creates an exporter writing to opts.Brokers.
func NewKafkaExporter(opts Options) (*KafkaExporter, error) {
	if len(opts.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if opts.Topic == "" {
		opts.Topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(opts.Brokers...),
		Topic:        opts.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
	}
	return newExporter(w, opts.Timeout), nil
}

func newExporter(w messageWriter, timeout time.Duration) *KafkaExporter {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &KafkaExporter{w: w, timeout: timeout}
}

// Message builds the Kafka message for c.
func Message(c logic.Cycle) (kafka.Message, error) {
	value, err := json.Marshal(status.FormatCycle(c))
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode cycle %s: %w", c.ID, err)
	}
	return kafka.Message{
		Key:   []byte(c.ID),
		Value: value,
		Time:  c.EndTime,
		Headers: []kafka.Header{
			{Key: "status", Value: []byte(c.Status)},
		},
	}, nil
}

// PublishCycle writes c and waits for the broker to acknowledge it.
func (e *KafkaExporter) PublishCycle(c logic.Cycle) error {
	msg, err := Message(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	if err := e.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write cycle %s: %w", c.ID, err)
	}
	return nil
}

// Name identifies the exporter in logs and metrics.
func (e *KafkaExporter) Name() string { return "kafka" }

// Close flushes pending writes and releases connections.
func (e *KafkaExporter) Close() error {
	return e.w.Close()
}
