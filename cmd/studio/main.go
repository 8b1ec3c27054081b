package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"studio/internal/auth"
	"studio/internal/cli"
	"studio/internal/config"
	"studio/internal/document"
	"studio/internal/forms"
	apphttp "studio/internal/http"
	"studio/internal/log"
	"studio/internal/metrics"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	cfg = cli.LoadAndValidateConfig(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	repo, cleanup := cli.MustOpenRepository(startCtx, cfg, logger, m.ObserveMutation)

	if cfg.SeedDemo {
		seeded, err := repo.Seed(startCtx)
		if err != nil {
			logger.Error("Demo seeding failed", log.FieldError, err)
		} else if seeded {
			logger.Info("Demo treatment catalog loaded")
		}
	}
	startCancel()

	if cfg.SessionKey == "" {
		logger.Warn("SESSION_KEY not set: sessions will not survive a restart")
	}
	authn, err := auth.New(auth.NewCookieStore([]byte(cfg.SessionKey), cfg.CookieSecure), logger.WithComponent(log.ComponentAuth))
	if err != nil {
		logger.Error("Failed to initialize authentication", log.FieldError, err)
		os.Exit(1)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Repo:     repo,
		Forms:    forms.NewService(repo, logger.WithComponent(log.ComponentForms)),
		Auth:     authn,
		Logger:   logger.WithComponent(log.ComponentHTTP),
		Metrics:  m,
		Gatherer: reg,
		Studio: document.Studio{
			Name:    cfg.StudioName,
			Address: cfg.StudioAddress,
			Email:   cfg.StudioEmail,
		},
		CSRFKey:        []byte(cfg.CSRFKey),
		CookieSecure:   cfg.CookieSecure,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := cleanup(); err != nil {
			logger.Error("Storage close error", log.FieldError, err)
		}
	})

	logger.Info("Starting studio server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		_ = cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
