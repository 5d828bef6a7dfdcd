package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

const eventSource = "exam-engine"

// Publisher defines the interface for publishing study-activity events
type Publisher interface {
	PublishStudyEvent(ctx context.Context, event *StudyEvent) error
	Close() error
}

// NewStudyEvent builds the event envelope around a payload
func NewStudyEvent(eventType EventType, data interface{}) *StudyEvent {
	return &StudyEvent{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   "1.0",
		Data:      data,
	}
}

// KafkaPublisher implements Publisher using Watermill with Kafka
type KafkaPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
	topicName string
}

// PublisherConfig holds configuration for the event publisher
type PublisherConfig struct {
	KafkaBrokers []string
	TopicName    string
	Logger       *slog.Logger
}

// NewKafkaPublisher creates a new Kafka-based event publisher using Watermill
func NewKafkaPublisher(config PublisherConfig) (*KafkaPublisher, error) {
	logger := watermill.NewSlogLogger(config.Logger)

	publisherConfig := kafka.PublisherConfig{
		Brokers:   config.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}

	publisher, err := kafka.NewPublisher(publisherConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return &KafkaPublisher{
		publisher: publisher,
		logger:    config.Logger,
		topicName: config.TopicName,
	}, nil
}

// PublishStudyEvent publishes a study-activity event to Kafka
func (p *KafkaPublisher) PublishStudyEvent(ctx context.Context, event *StudyEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal study event: %w", err)
	}

	msg := message.NewMessage(event.ID, eventBytes)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339))

	if err := p.publisher.Publish(p.topicName, msg); err != nil {
		p.logger.Error("Failed to publish study event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		return fmt.Errorf("failed to publish study event: %w", err)
	}

	p.logger.Info("Published study event",
		"event_id", event.ID,
		"event_type", event.Type,
		"topic", p.topicName)

	return nil
}

// Close closes the publisher and releases resources
func (p *KafkaPublisher) Close() error {
	return p.publisher.Close()
}

// MockPublisher is an in-memory implementation for tests and local runs.
// Safe for use from dispatcher worker goroutines.
type MockPublisher struct {
	mu     sync.Mutex
	events []StudyEvent
	Logger *slog.Logger
}

// NewMockPublisher creates a new mock event publisher
func NewMockPublisher(logger *slog.Logger) *MockPublisher {
	return &MockPublisher{
		events: make([]StudyEvent, 0),
		Logger: logger,
	}
}

// PublishStudyEvent stores the event in memory
func (m *MockPublisher) PublishStudyEvent(ctx context.Context, event *StudyEvent) error {
	m.mu.Lock()
	m.events = append(m.events, *event)
	m.mu.Unlock()
	m.Logger.Info("Mock: Published study event",
		"event_id", event.ID,
		"event_type", event.Type)
	return nil
}

// Close is a no-op for the mock publisher
func (m *MockPublisher) Close() error {
	return nil
}

// GetPublishedEvents returns a copy of all published events
func (m *MockPublisher) GetPublishedEvents() []StudyEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StudyEvent, len(m.events))
	copy(out, m.events)
	return out
}

// ClearEvents clears all published events
func (m *MockPublisher) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = m.events[:0]
}
