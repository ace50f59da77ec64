// The worker binary consumes queued estimate runs: it fetches the stored
// blueprint, drives the full calculation pipeline, and records the outcome.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"heatload_backend/internal/blob"
	"heatload_backend/internal/blueprint"
	"heatload_backend/internal/estimate"
	"heatload_backend/internal/estimate/status"
	"heatload_backend/internal/scheduler"
	"heatload_backend/internal/vision"
	"heatload_backend/platform/config"
	"heatload_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.Env)

	if !cfg.IsMinIOEnabled() {
		log.Error("MINIO_ENDPOINT is required for the worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobs, err := blob.New(ctx, cfg)
	if err != nil {
		log.Error("blob store init failed", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.GetRedisPassword(),
		DB:       cfg.GetRedisDB(),
	})
	defer redisClient.Close()
	statusStore := status.New(redisClient, 0)

	var analyzer *vision.Analyzer
	if cfg.IsVisionEnabled() {
		providers, err := vision.NewGeminiProviders(ctx, cfg.GetGeminiAPIKey(), cfg.GetVisionModels())
		if err != nil {
			log.Error("vision provider init failed", "error", err)
			os.Exit(1)
		}
		analyzer = vision.NewAnalyzer(providers,
			cfg.GetVisionTimeout(), cfg.GetVisionTotalBudget(), cfg.GetVisionConcurrency(), log)
		log.Info("vision enabled", "models", cfg.GetVisionModels())
	} else {
		log.Warn("no vision provider configured, running rule extractors only")
	}

	adapter := blueprint.NewAdapter(blueprint.NewHTTPRenderer(cfg.GetRendererURL()))
	service := estimate.NewService(adapter, analyzer, cfg, log)

	worker := scheduler.NewWorker(cfg, service, blobs, statusStore, log)

	go func() {
		<-ctx.Done()
		worker.Shutdown()
	}()

	log.Info("worker starting")
	if err := worker.Run(); err != nil {
		log.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}
