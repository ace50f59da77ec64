// Package scheduler defines the background task types and the asynq client
// and worker that carry estimate runs off the request path.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"heatload_backend/internal/estimate/transport"
)

// TaskEstimateRun executes one load-calculation run.
const TaskEstimateRun = "estimate.run"

// EstimateRunPayload points the worker at a stored blueprint plus the user
// assumptions.
type EstimateRunPayload struct {
	RunID       string                `json:"runId"`
	BlobRef     string                `json:"blobRef"`
	Zip         string                `json:"zip"`
	Assumptions transport.Assumptions `json:"assumptions"`
}

// NewEstimateRunTask builds the asynq task for a run.
func NewEstimateRunTask(payload EstimateRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEstimateRun, data, asynq.MaxRetry(1)), nil
}

// ParseEstimateRunPayload decodes a task payload.
func ParseEstimateRunPayload(task *asynq.Task) (EstimateRunPayload, error) {
	var payload EstimateRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return EstimateRunPayload{}, err
	}
	return payload, nil
}
