package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/vesaa/hvacpulse/internal/models"
	"go.uber.org/zap"
)

// HeartbeatEvent is the message published for every stored heartbeat, so
// downstream consumers (alerting, fleet dashboards) can follow liveness
// without polling the database.
type HeartbeatEvent struct {
	DeviceID string    `json:"device_id"`
	SiteID   string    `json:"site_id"`
	Status   string    `json:"status,omitempty"`
	SeenAt   time.Time `json:"seen_at"`
}

// EventPublisher pushes heartbeat events to an external stream.
type EventPublisher interface {
	PublishHeartbeat(ctx context.Context, event HeartbeatEvent) error
	Close() error
}

// events is nil unless kafka brokers are configured.
var events EventPublisher

// SetEventPublisher installs the publisher; nil disables publishing.
func SetEventPublisher(p EventPublisher) {
	events = p
}

// publishHeartbeatEvent emits the event for one stored record. Publishing is
// best-effort: a broker failure is logged and never fails the heartbeat.
func publishHeartbeatEvent(ctx context.Context, rec models.HeartbeatRecord, seenAt time.Time) {
	if events == nil {
		return
	}
	event := HeartbeatEvent{
		DeviceID: rec.DeviceID,
		SiteID:   rec.SiteID,
		SeenAt:   seenAt,
	}
	if rec.Status != nil {
		event.Status = string(*rec.Status)
	}
	if err := events.PublishHeartbeat(ctx, event); err != nil {
		logger.Warn("heartbeat event publish failed",
			zap.String("device_id", event.DeviceID),
			zap.Error(err))
	}
}

// KafkaPublisher writes heartbeat events to a Kafka topic. Messages are
// keyed by device_id with a hash balancer, keeping one device's events in
// order within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
// The writer is asynchronous: WriteMessages enqueues and returns, delivery
// failures surface through the completion callback.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
			Async:    true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					logger.Warn("kafka delivery failed",
						zap.Int("messages", len(messages)),
						zap.Error(err))
				}
			},
		},
	}
}

// PublishHeartbeat enqueues one event for delivery.
func (p *KafkaPublisher) PublishHeartbeat(ctx context.Context, event HeartbeatEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.DeviceID),
		Value: value,
		Time:  event.SeenAt,
	})
}

// Close flushes buffered messages and releases the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
