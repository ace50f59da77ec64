package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"heatload_backend/platform/config"
)

// Client enqueues background tasks.
type Client struct {
	inner *asynq.Client
}

// NewClient creates an asynq client over redis.
func NewClient(cfg config.RedisConfig) *Client {
	return &Client{inner: asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.GetRedisPassword(),
		DB:       cfg.GetRedisDB(),
	})}
}

// EnqueueEstimateRun queues a run for the worker.
func (c *Client) EnqueueEstimateRun(ctx context.Context, payload EstimateRunPayload) error {
	task, err := NewEstimateRunTask(payload)
	if err != nil {
		return fmt.Errorf("build estimate task: %w", err)
	}
	if _, err := c.inner.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue estimate task: %w", err)
	}
	return nil
}

// Close releases the underlying connections.
func (c *Client) Close() error {
	return c.inner.Close()
}
