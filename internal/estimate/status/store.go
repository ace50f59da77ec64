// Package status tracks estimate-run state in redis so the API can answer
// polling clients while the worker grinds through the pipeline.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"heatload_backend/platform/apperr"
)

// Run states.
const (
	StateQueued     = "queued"
	StateRunning    = "running"
	StateDone       = "done"
	StateNeedsInput = "needs_input"
	StateFailed     = "failed"
)

// Record is the stored run state plus its serialized outcome once finished.
type Record struct {
	RunID     string          `json:"run_id"`
	State     string          `json:"state"`
	Error     string          `json:"error,omitempty"`
	Outcome   json.RawMessage `json:"outcome,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store is a redis-backed run-status store.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a store. Records expire after ttl (0 means 7 days).
func New(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

func key(runID string) string { return "estimate:run:" + runID }

// Set writes a run record.
func (s *Store) Set(ctx context.Context, rec Record) error {
	rec.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}
	if err := s.client.Set(ctx, key(rec.RunID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store run record: %w", err)
	}
	return nil
}

// Transition updates only the state and error of an existing record.
func (s *Store) Transition(ctx context.Context, runID, state, errMsg string) error {
	rec, err := s.Get(ctx, runID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			rec = &Record{RunID: runID}
		} else {
			return err
		}
	}
	rec.State = state
	rec.Error = errMsg
	return s.Set(ctx, *rec)
}

// Complete stores the final state together with the serialized outcome.
func (s *Store) Complete(ctx context.Context, runID, state string, outcome any) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	return s.Set(ctx, Record{RunID: runID, State: state, Outcome: data})
}

// Get loads a run record.
func (s *Store) Get(ctx context.Context, runID string) (*Record, error) {
	data, err := s.client.Get(ctx, key(runID)).Bytes()
	if err == redis.Nil {
		return nil, apperr.NotFound(fmt.Sprintf("run %s not found", runID))
	}
	if err != nil {
		return nil, fmt.Errorf("load run record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode run record: %w", err)
	}
	return &rec, nil
}
