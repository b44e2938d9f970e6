// Package publisher forwards cart change events to Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"decostore-rest-api/internal/metrics"
	"decostore-rest-api/internal/service"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config configures a KafkaPublisher.
type Config struct {
	Brokers      []string
	Topic        string
	BufferSize   int
	WriteTimeout time.Duration
}

// KafkaPublisher queues cart events and writes them from a single goroutine,
// keyed by client id so one cart's events stay ordered within a partition.
type KafkaPublisher struct {
	writer  MessageWriter
	topic   string
	timeout time.Duration
	metrics *metrics.Metrics
	logger  logrus.FieldLogger

	queue     chan service.CartEvent
	done      chan struct{}
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewKafkaPublisher creates a publisher writing to cfg.Brokers.
func NewKafkaPublisher(cfg Config, m *metrics.Metrics, logger logrus.FieldLogger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            3,
		BatchTimeout:           50 * time.Millisecond,
	}
	return NewWithWriter(writer, cfg, m, logger)
}

// NewWithWriter creates a publisher over an existing writer.
func NewWithWriter(w MessageWriter, cfg Config, m *metrics.Metrics, logger logrus.FieldLogger) *KafkaPublisher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	p := &KafkaPublisher{
		writer:  w,
		topic:   cfg.Topic,
		timeout: cfg.WriteTimeout,
		metrics: m,
		logger:  logger.WithFields(logrus.Fields{"component": "publisher", "topic": cfg.Topic}),
		queue:   make(chan service.CartEvent, cfg.BufferSize),
		done:    make(chan struct{}),
	}
	go p.loop()
	return p
}

// Publish enqueues ev. It never blocks; events are dropped when the queue is full.
func (p *KafkaPublisher) Publish(ev service.CartEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.metrics.ObserveEventPublished("dropped")
		return
	}
	select {
	case p.queue <- ev:
	default:
		p.metrics.ObserveEventPublished("dropped")
		p.logger.WithField("client_id", ev.ClientID).Warn("event queue full, dropping cart event")
	}
}

func (p *KafkaPublisher) loop() {
	defer close(p.done)
	for ev := range p.queue {
		p.write(ev)
	}
}

func (p *KafkaPublisher) write(ev service.CartEvent) {
	value, err := json.Marshal(ev)
	if err != nil {
		p.metrics.ObserveEventPublished("failure")
		p.logger.WithError(err).Error("failed to marshal cart event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(ev.ClientID),
		Value: value,
		Time:  ev.At,
		Headers: []kafka.Header{
			{Key: "operation", Value: []byte(ev.Operation)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.ObserveEventPublished("failure")
		p.logger.WithError(err).WithFields(logrus.Fields{
			"client_id": ev.ClientID,
			"operation": ev.Operation,
		}).Error("failed to publish cart event")
		return
	}
	p.metrics.ObserveEventPublished("success")
	p.logger.WithFields(logrus.Fields{
		"client_id": ev.ClientID,
		"operation": ev.Operation,
	}).Debug("cart event published")
}

// Close drains queued events and closes the writer.
func (p *KafkaPublisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()

		<-p.done
		err = p.writer.Close()
	})
	return err
}
