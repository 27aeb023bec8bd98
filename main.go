package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/speedrun-hq/speedrun-swapper/pkg/config"
	"github.com/speedrun-hq/speedrun-swapper/pkg/logger"
	"github.com/speedrun-hq/speedrun-swapper/pkg/swapper"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	stdLogger := logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level)

	// Set up context with cancellation on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service, err := swapper.NewService(ctx, cfg, stdLogger)
	if err != nil {
		log.Fatalf("Failed to create swapper service: %v", err)
	}

	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		stdLogger.Info("Received termination signal, shutting down gracefully...")
		cancel()
	}()

	stdLogger.Info("Starting the swapper service...")
	if err := service.Start(ctx); err != nil {
		log.Fatalf("Swapper service stopped: %v", err)
	}
}
