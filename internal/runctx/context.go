// Package runctx holds the write-once context for a single estimate run.
// The selected scale and the blueprint quality score are computed once and
// frozen; downstream components read but never mutate them. Attempting to
// overwrite a sealed value is a programmer error, not a data condition.
package runctx

import (
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"heatload_backend/platform/apperr"
)

// scaleEpsilon tolerates float noise when the same scale is re-set.
const scaleEpsilon = 1e-9

// RunContext carries run-scoped frozen values.
type RunContext struct {
	runID string

	mu            sync.RWMutex
	scale         float64
	scaleSet      bool
	quality       float64
	qualitySet    bool
	warnings      []string
	sealed        bool
}

// New creates a run context with a fresh run ID.
func New() *RunContext {
	return &RunContext{runID: uuid.NewString()}
}

// NewWithID creates a run context bound to an existing run ID (e.g. from a
// queued job payload).
func NewWithID(runID string) *RunContext {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &RunContext{runID: runID}
}

// RunID returns the run identifier.
func (rc *RunContext) RunID() string { return rc.runID }

// SetScale locks the selected scale (pixels per foot). Setting the same value
// again is a no-op; setting a different value returns ScaleConflict.
func (rc *RunContext) SetScale(pxPerFt float64) error {
	if pxPerFt <= 0 {
		return apperr.Internal(fmt.Sprintf("scale must be positive, got %f", pxPerFt))
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.sealed && !rc.scaleSet {
		return apperr.ScaleConflict("run context is sealed, scale can no longer be set")
	}
	if rc.scaleSet {
		if math.Abs(rc.scale-pxPerFt) <= scaleEpsilon {
			return nil
		}
		return apperr.ScaleConflict(
			fmt.Sprintf("scale already locked at %.4f px/ft, refusing %.4f", rc.scale, pxPerFt))
	}
	rc.scale = pxPerFt
	rc.scaleSet = true
	return nil
}

// Scale returns the locked scale. ok is false before SetScale.
func (rc *RunContext) Scale() (pxPerFt float64, ok bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.scale, rc.scaleSet
}

// SetQuality locks the blueprint quality score.
func (rc *RunContext) SetQuality(value float64) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.qualitySet || rc.sealed {
		return apperr.Internal("quality score already locked for this run")
	}
	rc.quality = value
	rc.qualitySet = true
	return nil
}

// Quality returns the locked quality score. ok is false before SetQuality.
func (rc *RunContext) Quality() (float64, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.quality, rc.qualitySet
}

// AddWarning records a run-scoped warning for the audit report.
func (rc *RunContext) AddWarning(msg string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.warnings = append(rc.warnings, msg)
}

// Warnings returns a copy of the accumulated warnings.
func (rc *RunContext) Warnings() []string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	out := make([]string, len(rc.warnings))
	copy(out, rc.warnings)
	return out
}

// Seal marks the context complete. Further SetQuality calls fail, as do
// SetScale calls other than re-setting an already locked value.
func (rc *RunContext) Seal() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.sealed = true
}
