package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"studio/internal/amqp"
	"studio/internal/cli"
	"studio/internal/config"
	"studio/internal/log"
	"studio/internal/metrics"
	"studio/internal/services"
	"studio/internal/worker"
)

// observedJob records the outcome of every reminder run
type observedJob struct {
	job     worker.ReminderJob
	metrics *metrics.Metrics
}

func (o observedJob) ProcessDueReminders(ctx context.Context, now time.Time) (int, error) {
	sent, err := o.job.ProcessDueReminders(ctx, now)
	o.metrics.ObserveReminderRun(err)
	return sent, err
}

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	cfg = cli.LoadAndValidateConfig(logger)

	logger.Info("Starting reminder-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the reminder worker")
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	openCtx, openCancel := context.WithTimeout(context.Background(), 30*time.Second)
	repo, cleanup := cli.MustOpenRepository(openCtx, cfg, logger, m.ObserveMutation)
	openCancel()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		_ = cleanup()
		os.Exit(1)
	}

	processor := services.NewReminderProcessor(repo, amqpClient, logger.WithComponent(log.ComponentReminder))
	reminders, err := worker.NewReminderWorker(observedJob{job: processor, metrics: m},
		worker.Schedule{At: cfg.ReminderAt, Every: cfg.ReminderEvery}, logger.WithComponent(log.ComponentWorker))
	if err != nil {
		logger.Error("Invalid reminder schedule", log.FieldError, err)
		_ = cleanup()
		os.Exit(1)
	}

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           metrics.Handler(reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		reminders.Stop()
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logger.Error("Metrics server shutdown error", log.FieldError, err)
		}
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", log.FieldError, err)
		}
		if err := cleanup(); err != nil {
			logger.Error("Storage close error", log.FieldError, err)
		}
	})

	// Catch up on anything missed while the worker was down
	if _, err := reminders.RunOnce(ctx); err != nil {
		logger.Warn("Startup reminder run failed", log.FieldError, err)
	}
	if err := reminders.Start(ctx); err != nil {
		logger.Error("Failed to start reminder worker", log.FieldError, err)
		os.Exit(1)
	}

	go func() {
		logger.Info("Serving worker metrics", "port", cfg.Port)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server error", log.FieldError, err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Reminder worker stopped gracefully")
}
