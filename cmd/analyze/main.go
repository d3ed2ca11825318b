package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"blocklens/infrastructure/config"
	"blocklens/infrastructure/di"
)

func main() {
	renderTrees := flag.Bool("render-trees", false, "log a visualization of every reconstructed tree (debug level)")
	flag.Parse()

	// Cancel the run on interrupt so a partial result never overwrites a
	// finished one
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container
	container, err := di.InitializeContainer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer func() {
		_ = container.Logger.Sync()
	}()

	container.Analyzer.RenderTrees(*renderTrees)

	container.Logger.Info("Starting analysis",
		zap.String("experiment", cfg.Experiment),
		zap.String("trafficDir", cfg.TrafficDir),
		zap.String("duplicatePolicy", cfg.DuplicatePolicy),
		zap.String("environment", cfg.Environment),
	)

	if _, err := container.Analyzer.Run(ctx, cfg.Experiment); err != nil {
		container.Logger.Fatal("Analysis failed", zap.Error(err))
	}

	container.Logger.Info("Analysis complete",
		zap.String("experiment", cfg.Experiment))
}
