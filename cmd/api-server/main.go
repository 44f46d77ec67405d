// Package main provides the entry point for the dashboard API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/trackside/internal/api"
	"github.com/yourusername/trackside/internal/config"
	"github.com/yourusername/trackside/internal/database"
	"github.com/yourusername/trackside/internal/feed"
	"github.com/yourusername/trackside/internal/health"
	"github.com/yourusername/trackside/internal/logger"
	"github.com/yourusername/trackside/internal/metrics"
	"github.com/yourusername/trackside/internal/realtime"
	"github.com/yourusername/trackside/internal/repository"
	"github.com/yourusername/trackside/internal/session"
	"github.com/yourusername/trackside/internal/submission"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadForService(ctx, *configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog := logger.NewForEnvironment(cfg.App.LogLevel, cfg.App.Environment)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
		"commit":      GitCommit,
	}).Info("Trackside API server starting")

	if err := run(ctx, cfg, appLog); err != nil {
		appLog.WithError(err).Fatal("API server stopped with error")
	}
	appLog.Info("Trackside API server shut down successfully")
}

func run(ctx context.Context, cfg *config.Config, appLog *logrus.Logger) error {
	metrics.InitRegistry()

	db, err := database.Initialize(ctx, cfg, appLog)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	repos, err := repository.NewRepositories(db)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	redisClient, err := realtime.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	audit := logger.NewAuditLogger(appLog)
	horseFeed := feed.New(repos.Horse, appLog)
	hub := realtime.NewHub(realtime.AllowOrigins(cfg.API.AllowedOrigins), appLog)
	defer hub.Close()

	sessions := session.NewStore(horseFeed, audit, cfg.SessionTTL(), cfg.SessionCleanupInterval())
	defer sessions.Flush()

	submitter := submission.FromConfig(cfg.Kafka, audit)
	if closer, ok := submitter.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	server, err := api.NewServer(cfg.API, api.Deps{
		Races:     repos.Race,
		Results:   repos.RaceResult,
		Horses:    horseFeed,
		Odds:      repos.Odds,
		Sessions:  sessions,
		Submitter: submitter,
		Websocket: http.HandlerFunc(hub.HandleWS),
		Logger:    appLog,
	})
	if err != nil {
		return err
	}

	// Updates from the ingestion daemon reach open tickets and websocket clients.
	subscriber := realtime.NewRedisSubscriber(redisClient, cfg.Redis.Channel, appLog)
	go func() {
		err := subscriber.Run(ctx,
			func(u realtime.HorseListUpdate) { horseFeed.Publish(u.RaceID, u.Horses) },
			hub.Broadcast,
		)
		if err != nil {
			appLog.WithError(err).Error("Redis subscriber stopped")
		}
	}()

	healthServer := health.NewServer(health.Config{
		ServiceName: "api-server",
		Version:     Version,
		Port:        cfg.Health.Port,
		Logger:      appLog,
	})
	healthServer.AddCheck("database", db)
	healthServer.AddCheck("redis", health.PingFunc(func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	}))
	if err := healthServer.Start(ctx); err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics, appLog)
	}

	healthServer.SetReady(true)
	return server.Start(ctx)
}

func serveMetrics(ctx context.Context, cfg config.MetricsConfig, appLog *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	appLog.WithField("port", cfg.Port).Info("Metrics server starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		appLog.WithError(err).Error("Metrics server error")
	}
}
