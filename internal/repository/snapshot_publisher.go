package repository

import (
	"context"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/domain/repository"
	pkgkafka "CoinPulse/pkg/kafka"
)

// KafkaPublisher implements Publisher for Kafka. Events are keyed by
// asset so per-asset ordering survives partitioning.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates a Kafka snapshot publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event *models.SnapshotEvent) error {
	var key []byte
	if event.Snapshot != nil {
		key = []byte(event.Snapshot.Key)
	}
	return p.producer.Publish(ctx, p.topic, key, event)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
