package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/intake-ai-platform/cmd/mainconfig"
	"github.com/wolfman30/intake-ai-platform/internal/api/router"
	"github.com/wolfman30/intake-ai-platform/internal/app/bootstrap"
	"github.com/wolfman30/intake-ai-platform/internal/archive"
	appconfig "github.com/wolfman30/intake-ai-platform/internal/config"
	"github.com/wolfman30/intake-ai-platform/internal/dialogue"
	httpmiddleware "github.com/wolfman30/intake-ai-platform/internal/http/middleware"
	"github.com/wolfman30/intake-ai-platform/internal/knowledge"
	"github.com/wolfman30/intake-ai-platform/internal/unanswered"
	"github.com/wolfman30/intake-ai-platform/internal/webchat"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

const (
	chatRatePerSecond = 2
	chatBurst         = 10
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting intake-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	metricsHandler, registry := setupMetrics()
	rt, err := bootstrap.BuildRuntime(ctx, cfg, awsCfg, registry, logger)
	if err != nil {
		logger.Error("failed to build dialogue runtime", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	limiter := httpmiddleware.NewRateLimiter(chatRatePerSecond, chatBurst)
	go limiter.Run(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(routerConfig(cfg, rt, metricsHandler, limiter, logger)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics returns a /metrics handler backed by a dedicated registry.
func setupMetrics() (http.Handler, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), registry
}

func routerConfig(cfg *appconfig.Config, rt *bootstrap.Runtime, metricsHandler http.Handler, limiter *httpmiddleware.RateLimiter, logger *logging.Logger) *router.Config {
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; admin routes are disabled")
	}
	return &router.Config{
		Logger:             logger,
		DialogueHandler:    dialogue.NewHandler(rt.Engine, logger),
		WebChat:            webchat.NewHandler(rt.Engine, logger),
		KnowledgeHandler:   knowledge.NewHandler(rt.Knowledge, logger),
		UnansweredHandler:  unanswered.NewHandler(rt.Unanswered, logger),
		ArchiveHandler:     archive.NewHandler(rt.Engine, rt.Archiver, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatLimiter:        limiter,
		HealthCheck:        rt.HealthCheck,
	}
}
