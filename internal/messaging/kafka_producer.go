package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/config"
	"github.com/ohs25-2-misoten/agaru-up-api/shared/logger"
)

// Event types.
const (
	EventTypeVideoReported = "video.reported"
)

// MessageEvent is the envelope of every published event.
type MessageEvent struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"traceId,omitempty"`
	Payload   interface{} `json:"payload"`
}

// VideoReportedPayload describes a newly catalogued video.
type VideoReportedPayload struct {
	MovieID      string    `json:"movieId"`
	Title        string    `json:"title"`
	Tags         []string  `json:"tags"`
	Location     string    `json:"location"`
	CameraID     string    `json:"cameraId,omitempty"`
	User         string    `json:"user,omitempty"`
	URL          string    `json:"url"`
	GenerateDate time.Time `json:"generateDate"`
}

// Publisher sends report events.
type Publisher interface {
	PublishVideoReported(ctx context.Context, payload VideoReportedPayload) error
	Close() error
}

// KafkaProducer publishes events through a sarama SyncProducer.
type KafkaProducer struct {
	producer sarama.SyncProducer
	topic    string
	log      logger.Logger
}

// NewKafkaProducer connects to the configured brokers.
func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) (*KafkaProducer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V2_8_1_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaProducerWith(producer, cfg.Topic, log), nil
}

// NewKafkaProducerWith wraps an existing producer.
func NewKafkaProducerWith(producer sarama.SyncProducer, topic string, log logger.Logger) *KafkaProducer {
	return &KafkaProducer{producer: producer, topic: topic, log: log}
}

// PublishVideoReported sends a video.reported event keyed by movie id.
func (k *KafkaProducer) PublishVideoReported(ctx context.Context, payload VideoReportedPayload) error {
	return k.SendEvent(ctx, EventTypeVideoReported, payload.MovieID, payload)
}

// SendEvent wraps payload in a MessageEvent and sends it.
func (k *KafkaProducer) SendEvent(ctx context.Context, eventType, key string, payload interface{}) error {
	event := MessageEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TraceID:   logger.GetTraceID(ctx),
		Payload:   payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send %s event: %w", eventType, err)
	}

	k.log.DebugContext(ctx, "event sent: topic=%s partition=%d offset=%d type=%s",
		k.topic, partition, offset, eventType)
	return nil
}

// Close closes the producer.
func (k *KafkaProducer) Close() error {
	return k.producer.Close()
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

// PublishVideoReported implements Publisher.
func (NopPublisher) PublishVideoReported(context.Context, VideoReportedPayload) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
