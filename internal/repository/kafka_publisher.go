package repository

import (
	"context"
	"time"

	"StreetPull/internal/domain/models"
	pkgkafka "StreetPull/pkg/kafka"
)

// KafkaPublisher pushes freshly discovered stories to a Kafka topic for
// downstream consumers (alerting, enrichment).
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates the Kafka news publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, symbol string, items []models.NewsItem) error {
	if len(items) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(items))
	for i, it := range items {
		msgs[i] = pkgkafka.Message{
			// Keyed by ticker so one institution's stories stay ordered
			// within a partition.
			Key: []byte(symbol),
			Value: map[string]interface{}{
				"id":              it.ID,
				"ticker":          symbol,
				"headline":        it.Headline,
				"story_time":      it.StoryTime.Format(time.RFC3339),
				"primary_symbols": it.PrimarySymbols,
				"symbols":         it.Symbols,
				"categories":      it.Categories,
				"url":             it.URL,
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
