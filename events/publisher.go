// Package events publishes case-check events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Octopus-Moneycoach/coaching-ai/log"
	"github.com/Octopus-Moneycoach/coaching-ai/metrics"
	"github.com/segmentio/kafka-go"
)

var logger = log.GetLogger("Kafka")

// Event types, sent in the eventType header
const (
	EventCompleted  = "completed"
	EventEscalation = "escalation"
)

// Publisher publishes case-check events to separate Kafka topics.
type Publisher struct {
	writerCompleted  *kafka.Writer
	writerEscalation *kafka.Writer
	principal        string
	topicCompleted   string
	topicEscalation  string
	enabled          bool
	metrics          *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers         []string
	TopicCompleted  string
	TopicEscalation string
	Principal       string
	Enabled         bool
}

// New creates a publisher. A nil or disabled config yields a log-only publisher.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		logger.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{metrics: m}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		logger.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:       cfg.Principal,
			topicCompleted:  cfg.TopicCompleted,
			topicEscalation: cfg.TopicEscalation,
			metrics:         m,
		}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireAll,
			Transport:    transport,
		}
	}

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicCompleted", cfg.TopicCompleted).
		Str("topicEscalation", cfg.TopicEscalation).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerCompleted:  newWriter(cfg.TopicCompleted),
		writerEscalation: newWriter(cfg.TopicEscalation),
		principal:        cfg.Principal,
		topicCompleted:   cfg.TopicCompleted,
		topicEscalation:  cfg.TopicEscalation,
		enabled:          true,
		metrics:          m,
	}
}

// Enabled reports whether events reach Kafka
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// PublishCompleted publishes a finished case check. Keyed by meeting id so
// events for one meeting stay ordered.
func (p *Publisher) PublishCompleted(ctx context.Context, event CaseCheckEvent) error {
	return p.publish(ctx, p.writerCompleted, p.topicCompleted, EventCompleted, event.MeetingID, event)
}

// PublishEscalation publishes a case check that needs detailed review.
func (p *Publisher) PublishEscalation(ctx context.Context, event CaseCheckEvent) error {
	return p.publish(ctx, p.writerEscalation, p.topicEscalation, EventEscalation, event.MeetingID, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("topic", topic).Msg("failed to marshal event")
		return err
	}

	logger.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		logger.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerCompleted != nil {
		if e := p.writerCompleted.Close(); e != nil {
			logger.Error().Err(e).Msg("error closing completed writer")
			err = e
		}
	}
	if p.writerEscalation != nil {
		if e := p.writerEscalation.Close(); e != nil {
			logger.Error().Err(e).Msg("error closing escalation writer")
			err = e
		}
	}
	return err
}
