package capacity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Event types published on capacity lifecycle transitions
const (
	EventHoldCreated      = "capacity.hold.created"
	EventHoldExpired      = "capacity.hold.expired"
	EventHoldReleased     = "capacity.hold.released"
	EventBookingConfirmed = "capacity.booking.confirmed"
	EventBookingCancelled = "capacity.booking.cancelled"
)

// CapacityEvent is the message published to Kafka for downstream consumers
// (order system, notifications). Delivery to end users is out of scope here.
type CapacityEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	ScheduleID string    `json:"schedule_id"`
	SectionID  string    `json:"section_id"`
	VariantID  string    `json:"variant_id"`
	HoldID     string    `json:"hold_id,omitempty"`
	Quantity   int       `json:"quantity"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventProducer publishes capacity lifecycle events
type EventProducer interface {
	PublishEvent(ctx context.Context, event *CapacityEvent) error
	Close() error
}

// KafkaProducerConfig contains configuration for the Kafka capacity producer
type KafkaProducerConfig struct {
	Brokers          []string
	Topic            string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "capacity-events",
		RetryMax:         3,
		TimeoutMs:        10000,
		RequiredAcks:     sarama.WaitForAll,
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
	}
}

// KafkaEventProducer publishes capacity events to Kafka
type KafkaEventProducer struct {
	producer sarama.SyncProducer
	config   *KafkaProducerConfig
}

// NewKafkaEventProducer creates a new Kafka capacity event producer
func NewKafkaEventProducer(config *KafkaProducerConfig) (EventProducer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = config.IdempotentWrites

	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash on schedule ID so events for one schedule stay ordered
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaEventProducer{
		producer: producer,
		config:   config,
	}, nil
}

// PublishEvent publishes a single capacity event
func (p *KafkaEventProducer) PublishEvent(ctx context.Context, event *CapacityEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal capacity event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.config.Topic,
		Key:   sarama.StringEncoder(event.ScheduleID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}

	if _, _, err := p.producer.SendMessage(message); err != nil {
		return fmt.Errorf("failed to publish capacity event %s: %w", event.Type, err)
	}
	return nil
}

// Close shuts down the underlying producer
func (p *KafkaEventProducer) Close() error {
	return p.producer.Close()
}
