package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/deusflow/dailybrief/internal/app"
	"github.com/deusflow/dailybrief/internal/config"
	"github.com/deusflow/dailybrief/internal/logger"
)

func main() {
	once := flag.Bool("once", false, "run the pipeline once and exit, ignoring SCHEDULE")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	logger.Init(cfg.Debug)

	if cfg.EnableMonitoring {
		go startMonitoringServer(cfg.MonitoringPort)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once || cfg.Schedule == "" {
		if err := app.Run(ctx, cfg); err != nil {
			logger.Error("Run failed", "err", err)
			stop()
			os.Exit(1)
		}
		return
	}

	c := cron.New(cron.WithLocation(cfg.Location))
	_, err = c.AddFunc(cfg.Schedule, func() {
		logger.Info("Cron triggered, running batch")
		if err := app.Run(ctx, cfg); err != nil {
			logger.Error("Scheduled run failed", "err", err)
		}
	})
	if err != nil {
		logger.Error("Failed to set up cron schedule", "schedule", cfg.Schedule, "err", err)
		os.Exit(1)
	}
	c.Start()
	logger.Info("Scheduled batch", "schedule", cfg.Schedule, "timezone", cfg.Location.String())

	<-ctx.Done()
	logger.Info("Shutting down")
	<-c.Stop().Done()
	logger.Info("Shutdown complete")
}
