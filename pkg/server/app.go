package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"StreetPull/internal/domain/repository"
	"StreetPull/internal/usecase"
	pkgch "StreetPull/pkg/clickhouse"
	"StreetPull/pkg/config"
	xhttp "StreetPull/pkg/http"
	applogger "StreetPull/pkg/logger"
)

// App encapsulates the application lifecycle. It runs either as a one-shot
// batch or, when a schedule is configured, as a daemon that reruns the batch
// on a cron expression and serves the HTTP API between runs.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	runlog     *applogger.RunLog
	batch      *usecase.Batch
	handler    xhttp.Handler
	seen       repository.SeenStore
	archive    repository.Archive
	pub        repository.Publisher
	chClient   *pkgch.Client
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	runlog *applogger.RunLog,
	batch *usecase.Batch,
	handler xhttp.Handler,
	seen repository.SeenStore,
	archive repository.Archive,
	pub repository.Publisher,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		runlog:   runlog,
		batch:    batch,
		handler:  handler,
		seen:     seen,
		archive:  archive,
		pub:      pub,
		chClient: chClient,
	}
}

// Run starts the application. One-shot mode returns after the single batch;
// daemon mode blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer a.close()

	if a.cfg.Schedule == "" {
		return a.runOnce(ctx)
	}
	return a.runDaemon(ctx)
}

func (a *App) runOnce(ctx context.Context) error {
	summary, err := a.batch.Run(ctx)
	a.flushRunLog()
	if err != nil {
		return fmt.Errorf("batch run: %w", err)
	}
	if failed := summary.Failed(); failed > 0 {
		a.log.Warn("batch finished with failures", applogger.Int("failed_tickers", failed))
	}
	return nil
}

func (a *App) runDaemon(ctx context.Context) error {
	if a.cfg.Server.Enabled {
		a.httpServer = xhttp.NewServer(a.handler,
			xhttp.WithPort(a.cfg.Server.Port),
			xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
			xhttp.WithMetricsPath(a.cfg.Metrics.Path),
		)
		if err := a.httpServer.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	// Runs never overlap: a trigger firing while a run is still in progress
	// is skipped, covering both the immediate first run and scheduled ones.
	runBatch := func() {
		_, skipped, err := a.batch.TryRun(ctx)
		if skipped {
			a.log.Warn("previous batch still running, skipping this trigger")
			return
		}
		if err != nil {
			a.log.Error("batch run failed", applogger.Error(err))
		}
		a.flushRunLog()
	}

	c := cron.New()
	if _, err := c.AddFunc(a.cfg.Schedule, runBatch); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", a.cfg.Schedule, err)
	}
	c.Start()
	a.log.Info("scheduler started", applogger.String("schedule", a.cfg.Schedule))

	// First run immediately; subsequent runs follow the schedule.
	go runBatch()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	a.log.Info("shutdown signal received")

	stopCtx := c.Stop()
	<-stopCtx.Done()

	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}
	return nil
}

func (a *App) flushRunLog() {
	if !a.cfg.RunLog.Enabled {
		return
	}
	if err := a.runlog.Flush(a.cfg.RunLog.Dir, a.batch.LastSummary()); err != nil {
		a.log.Warn("run log flush failed", applogger.Error(err))
	}
}

// close releases infrastructure clients in sink-to-source order.
func (a *App) close() {
	if err := a.pub.Close(); err != nil {
		a.log.Warn("publisher close error", applogger.Error(err))
	}
	if err := a.archive.Close(); err != nil {
		a.log.Warn("archive close error", applogger.Error(err))
	}
	if err := a.seen.Close(); err != nil {
		a.log.Warn("seen store close error", applogger.Error(err))
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
}
