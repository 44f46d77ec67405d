// Package main provides the entry point for the odds ingestion service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/trackside/internal/config"
	"github.com/yourusername/trackside/internal/database"
	"github.com/yourusername/trackside/internal/datasource"
	"github.com/yourusername/trackside/internal/health"
	"github.com/yourusername/trackside/internal/logger"
	"github.com/yourusername/trackside/internal/metrics"
	"github.com/yourusername/trackside/internal/realtime"
	"github.com/yourusername/trackside/internal/repository"
	"github.com/yourusername/trackside/internal/scheduler"
	"github.com/yourusername/trackside/internal/service"
)

// Build information - set via ldflags
var Version = "dev"

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	once := flag.Bool("once", false, "Run every ingestion job once and exit")
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
		"once":        *once,
	}).Info("Trackside odds ingestion starting")

	if err := run(ctx, cfg, appLog, *once); err != nil {
		appLog.WithError(err).Fatal("Odds ingestion stopped with error")
	}
	appLog.Info("Trackside odds ingestion shut down successfully")
}

func run(ctx context.Context, cfg *config.Config, appLog *logrus.Logger, once bool) error {
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

	sources, err := datasource.NewFactory(appLog).NewDataSources(cfg.DataIngestion)
	if err != nil {
		return fmt.Errorf("failed to create data sources: %w", err)
	}

	redisClient, err := realtime.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	publisher := realtime.NewRedisPublisher(redisClient, cfg.Redis.Channel, appLog)

	ingestion := service.NewIngestionService(sources, repos, db, publisher, appLog)
	sched := scheduler.NewScheduler(ingestion, appLog)
	schedule := cfg.DataIngestion.Schedule

	if once {
		for _, name := range ingestion.Sources() {
			if err := sched.RunOnce(ctx, name, schedule.CardDaysAhead); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
		return nil
	}

	for _, name := range ingestion.Sources() {
		if err := sched.ScheduleCardSync(schedule.CardSync, name, schedule.CardDaysAhead); err != nil {
			return err
		}
		if err := sched.ScheduleLivePolling(cfg.LivePollingInterval(), name); err != nil {
			return err
		}
		if err := sched.ScheduleResultsSync(schedule.ResultsSync, name); err != nil {
			return err
		}
	}

	healthServer := health.NewServer(health.Config{
		ServiceName: "odds-ingestion",
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

	if err := sched.Start(); err != nil {
		return err
	}
	healthServer.SetReady(true)
	appLog.WithField("next_run", sched.GetNextRun()).Info("Ingestion jobs scheduled")

	<-ctx.Done()
	appLog.Info("Shutdown signal received")
	healthServer.SetReady(false)
	return sched.Stop()
}
