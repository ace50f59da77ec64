// The api binary serves the estimate HTTP surface: it accepts blueprint
// uploads, stores them, queues runs for the worker, and answers status
// polls.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"heatload_backend/internal/blob"
	"heatload_backend/internal/estimate/handler"
	"heatload_backend/internal/estimate/status"
	apphttp "heatload_backend/internal/http"
	"heatload_backend/internal/scheduler"
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
		log.Error("MINIO_ENDPOINT is required for the api server")
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
	queue := scheduler.NewClient(cfg)
	defer queue.Close()

	estimates := handler.New(blobs, queue, statusStore, log)
	router := apphttp.NewRouter(cfg, cfg.Env, log, estimates)

	server := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", cfg.GetHTTPAddr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
