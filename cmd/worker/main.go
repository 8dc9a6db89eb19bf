package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juzgadolab/sentencia-ciudadana/internal/bootstrap"
	"github.com/juzgadolab/sentencia-ciudadana/internal/config"
	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
	"github.com/juzgadolab/sentencia-ciudadana/internal/observability/logging"
	"github.com/juzgadolab/sentencia-ciudadana/internal/observability/metrics"
)

const (
	serviceName = "worker"

	// Generation against a local model can be slow; each envelope gets
	// its own deadline so one stuck task never wedges the subscriber.
	taskTimeout = 5 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup(serviceName, "info").Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, serviceName)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app.Runner.WithMetrics(workerMetrics)
	app.RegisterWorkerHandlers()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker metrics listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	logger.Info("worker consuming", "subjects", cfg.NATSSubjectPrefix+".*")
	err = app.Queue.Subscribe(ctx, func(msgCtx context.Context, envelope domain.TaskEnvelope) error {
		taskCtx, cancel := context.WithTimeout(msgCtx, taskTimeout)
		defer cancel()
		return app.Runner.Handle(taskCtx, envelope)
	})
	if err != nil {
		logger.Error("subscription failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown", "error", err)
	}
	logger.Info("worker stopped")
}
