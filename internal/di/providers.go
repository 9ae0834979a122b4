package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"StreetPull/internal/domain/models"
	"StreetPull/internal/domain/repository"
	"StreetPull/internal/handler/api"
	internalrepo "StreetPull/internal/repository"
	"StreetPull/internal/service/ratelimit"
	"StreetPull/internal/service/streetaccount"
	"StreetPull/internal/usecase"
	"StreetPull/pkg/cache"
	pkgch "StreetPull/pkg/clickhouse"
	"StreetPull/pkg/config"
	pkgkafka "StreetPull/pkg/kafka"
	applogger "StreetPull/pkg/logger"
	"StreetPull/pkg/metrics"
	"StreetPull/pkg/server"
)

// ProvideRunLog creates the run log that collects execution and error
// artifacts for the current batch.
func ProvideRunLog() *applogger.RunLog {
	return applogger.NewRunLog("street_account_news")
}

// ProvideLogger creates the application logger with the run log attached so
// log records double as run artifacts.
func ProvideLogger(cfg *config.Config, runlog *applogger.RunLog) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.RunLog.Enabled {
		l.AttachRunLog(runlog)
	}
	return l, nil
}

// ProvideHeadlinesSource creates the StreetAccount API client.
func ProvideHeadlinesSource(cfg *config.Config) repository.HeadlinesSource {
	c := streetaccount.New(
		cfg.StreetAccount.BaseURL,
		cfg.StreetAccount.Username,
		cfg.StreetAccount.Password,
		cfg.StreetAccount.Timeout,
	)
	c.Categories = cfg.StreetAccount.Categories
	c.Topics = cfg.StreetAccount.Topics
	c.Regions = cfg.StreetAccount.Regions
	c.Sectors = cfg.StreetAccount.Sectors
	return c
}

// ProvidePacer creates the request pacer from the configured delays.
func ProvidePacer(cfg *config.Config) *ratelimit.Pacer {
	p := ratelimit.New(cfg.StreetAccount.RequestDelay)
	if cfg.StreetAccount.LongPauseEvery > 0 {
		p.WithCheckpoint(cfg.StreetAccount.LongPauseEvery, cfg.StreetAccount.LongPause)
	}
	return p
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideFetcher creates the per-ticker fetch use case.
func ProvideFetcher(
	source repository.HeadlinesSource,
	pacer *ratelimit.Pacer,
	log *applogger.Logger,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.Fetcher {
	return usecase.NewFetcher(source, pacer, log, m, cfg.StreetAccount.PageLimit, usecase.RetryPolicy{
		MaxAttempts: cfg.StreetAccount.MaxRetries,
		Backoff:     cfg.StreetAccount.RetryBackoff,
		MaxBackoff:  cfg.StreetAccount.MaxRetryBackoff,
	})
}

// ProvideRequests converts the configured institution list into ticker
// requests.
func ProvideRequests(cfg *config.Config) []models.TickerRequest {
	reqs := make([]models.TickerRequest, 0, len(cfg.Institutions))
	for _, inst := range cfg.Institutions {
		reqs = append(reqs, models.TickerRequest{
			Symbol:        inst.Symbol,
			Name:          inst.Name,
			AssetType:     models.AssetType(inst.AssetType),
			LookbackDays:  cfg.StreetAccount.LookbackDays,
			IsPrimaryOnly: cfg.StreetAccount.IsPrimaryOnly,
		})
	}
	return reqs
}

// ProvideClickHouseClient creates the ClickHouse client and provisions the
// news schema. Returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := append(
		[]string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database)},
		internalrepo.NewsSchema(cfg.ClickHouse.Database+".news")...,
	)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideArchive creates the news archive, or a no-op when ClickHouse is
// disabled.
func ProvideArchive(chClient *pkgch.Client, cfg *config.Config) repository.Archive {
	if chClient == nil {
		return internalrepo.NoopArchive{}
	}
	return internalrepo.NewClickHouseArchive(chClient.DB(), cfg.ClickHouse.Database+".news")
}

// ProvideKafkaProducer creates a Kafka producer. Returns nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher creates the news publisher, or a no-op when Kafka is
// disabled.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return internalrepo.NoopPublisher{}
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideSeenStore creates the cross-run seen-story store. Redis when
// enabled, process-local memory otherwise.
func ProvideSeenStore(cfg *config.Config) (repository.SeenStore, error) {
	if !cfg.Redis.Enabled {
		return internalrepo.NewCachedSeenStore(cache.NewMemoryCache(), cfg.Redis.SeenTTL), nil
	}

	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return internalrepo.NewCachedSeenStore(rc, cfg.Redis.SeenTTL), nil
}

// ProvideReportWriter creates the file report writer.
func ProvideReportWriter(cfg *config.Config) (repository.ReportWriter, error) {
	return internalrepo.NewFileStore(cfg.Output.Dir, cfg.Output.Format)
}

// ProvideBatch creates the batch ingestion use case.
func ProvideBatch(
	fetcher *usecase.Fetcher,
	source repository.HeadlinesSource,
	seen repository.SeenStore,
	archive repository.Archive,
	pub repository.Publisher,
	reports repository.ReportWriter,
	log *applogger.Logger,
	runlog *applogger.RunLog,
	requests []models.TickerRequest,
) *usecase.Batch {
	return usecase.NewBatch(fetcher, source, seen, archive, pub, reports, log, runlog, requests)
}

// ProvideHandler creates the HTTP API handler.
func ProvideHandler(log *applogger.Logger, batch *usecase.Batch, archive repository.Archive) *api.NewsEchoHandler {
	return api.NewNewsEchoHandler(log, batch, archive)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	runlog *applogger.RunLog,
	batch *usecase.Batch,
	handler *api.NewsEchoHandler,
	seen repository.SeenStore,
	archive repository.Archive,
	pub repository.Publisher,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, log, runlog, batch, handler, seen, archive, pub, chClient)
}
