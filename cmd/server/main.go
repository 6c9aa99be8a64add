package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/efile/internal/config"
	"github.com/JonMunkholm/efile/internal/core"
	"github.com/JonMunkholm/efile/internal/efile"
	"github.com/JonMunkholm/efile/internal/logging"
	"github.com/JonMunkholm/efile/internal/metrics"
	"github.com/JonMunkholm/efile/internal/store"
	"github.com/JonMunkholm/efile/internal/web"
)

func main() {
	// Values already in the environment win over .env
	if err := config.LoadEnvFiles(".env"); err != nil {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"format_file", cfg.Format.File,
		"store_enabled", cfg.Database.Enabled(),
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	spec, err := efile.LoadFormatSpec(cfg.Format.File)
	if err != nil {
		slog.Error("failed to load format file", "error", err)
		os.Exit(1)
	}
	slog.Info("format loaded",
		"attribute_name_starter", spec.AttributeNameStarter,
		"data_line_starter", spec.DataLineStarter,
	)

	ctx := context.Background()

	var opts []web.Option
	var backend store.Backend
	if cfg.Database.Enabled() {
		backend, err = store.Open(ctx, cfg.Database.URL, store.PoolConfig{
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			slog.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer backend.Close()

		if cfg.Database.Migrate {
			if err := backend.Migrate(ctx); err != nil {
				slog.Error("failed to migrate store", "error", err)
				os.Exit(1)
			}
		}
		opts = append(opts, web.WithHealthCheck(backend.Ping))
		slog.Info("store connected")
	}

	m := metrics.New()

	var docs core.Store
	if backend != nil {
		docs = backend
	}
	service := core.NewService(spec, docs, core.Options{
		MaxFileSize:    cfg.Upload.MaxFileSize,
		MaxConcurrent:  cfg.Upload.MaxConcurrent,
		MaxWait:        cfg.Upload.MaxWaitTime,
		MaxCached:      cfg.Documents.MaxCached,
		StrictRowWidth: cfg.Format.StrictRowWidth,
		Logger:         logger,
		Metrics:        m,
	})

	server := web.NewServer(service, cfg, m, opts...)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	if cfg.Documents.MaxAge > 0 {
		go service.StartExpiryScheduler(jobCtx, core.ExpiryConfig{
			MaxAge:        cfg.Documents.MaxAge,
			CheckInterval: cfg.Documents.SweepInterval,
		})
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		status := service.Limiter().Status()
		if status.Active > 0 {
			slog.Info("waiting for parses to complete", "active", status.Active)
			if err := service.Shutdown(shutdownCtx); err != nil {
				slog.Warn("parses did not complete in time", "error", err)
			} else {
				slog.Info("all parses completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
