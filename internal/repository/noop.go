package repository

import (
	"context"
	"time"

	"StreetPull/internal/domain/models"
)

// NoopArchive satisfies the archive interface when ClickHouse is disabled
// (local runs, file-only deployments).
type NoopArchive struct{}

func (NoopArchive) StoreBatch(context.Context, string, []models.NewsItem) error { return nil }

func (NoopArchive) Query(context.Context, string, time.Time, time.Time, int) ([]models.NewsItem, error) {
	return nil, nil
}

func (NoopArchive) Health(context.Context) error { return nil }

func (NoopArchive) Close() error { return nil }

// NoopPublisher satisfies the publisher interface when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishBatch(context.Context, string, []models.NewsItem) error { return nil }

func (NoopPublisher) Close() error { return nil }
