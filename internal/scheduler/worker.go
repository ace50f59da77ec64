package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"heatload_backend/internal/blob"
	"heatload_backend/internal/estimate"
	"heatload_backend/internal/estimate/status"
	"heatload_backend/platform/config"
	"heatload_backend/platform/logger"
)

// Worker consumes estimate-run tasks.
type Worker struct {
	server  *asynq.Server
	service *estimate.Service
	blobs   *blob.Store
	status  *status.Store
	log     *logger.Logger
}

// NewWorker builds the asynq server and handler mux.
func NewWorker(cfg config.RedisConfig, service *estimate.Service, blobs *blob.Store, statusStore *status.Store, log *logger.Logger) *Worker {
	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		},
		asynq.Config{
			Concurrency: 4,
			Queues:      map[string]int{"default": 1},
		},
	)
	return &Worker{
		server:  server,
		service: service,
		blobs:   blobs,
		status:  statusStore,
		log:     log,
	}
}

// Run blocks serving tasks until the process stops.
func (w *Worker) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskEstimateRun, w.handleEstimateRun)
	return w.server.Run(mux)
}

// Shutdown stops the server gracefully.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleEstimateRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseEstimateRunPayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}
	log := w.log.WithRunID(payload.RunID)

	if err := w.status.Transition(ctx, payload.RunID, status.StateRunning, ""); err != nil {
		log.Warn("status transition failed", "error", err)
	}

	pdf, err := w.blobs.Get(ctx, payload.BlobRef)
	if err != nil {
		_ = w.status.Transition(ctx, payload.RunID, status.StateFailed, err.Error())
		return fmt.Errorf("fetch blueprint: %w", err)
	}

	outcome, err := w.service.RunWithID(ctx, payload.RunID, estimate.Request{
		PDF:         pdf,
		Zip:         payload.Zip,
		Assumptions: payload.Assumptions,
	})
	if err != nil {
		_ = w.status.Transition(ctx, payload.RunID, status.StateFailed, err.Error())
		// Critical failures are final; retrying the same document yields
		// the same outcome.
		return fmt.Errorf("%w: %s", asynq.SkipRetry, err.Error())
	}

	state := status.StateDone
	if outcome.NeedsInput != nil {
		state = status.StateNeedsInput
	}
	if err := w.status.Complete(ctx, payload.RunID, state, outcome); err != nil {
		log.Warn("storing outcome failed", "error", err)
		return err
	}

	log.Info("estimate run complete", "state", state)
	return nil
}
