// Package handler exposes the estimate module over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"heatload_backend/internal/blob"
	"heatload_backend/internal/estimate"
	"heatload_backend/internal/estimate/status"
	"heatload_backend/internal/estimate/transport"
	"heatload_backend/internal/scheduler"
	"heatload_backend/platform/apperr"
	"heatload_backend/platform/logger"
	"heatload_backend/platform/validator"
)

// maxUploadBytes bounds multipart blueprint uploads.
const maxUploadBytes = 50 << 20

// Handler serves the estimate endpoints.
type Handler struct {
	blobs    *blob.Store
	queue    *scheduler.Client
	status   *status.Store
	validate *validator.Validator
	log      *logger.Logger
}

// New creates a handler.
func New(blobs *blob.Store, queue *scheduler.Client, statusStore *status.Store, log *logger.Logger) *Handler {
	return &Handler{
		blobs:    blobs,
		queue:    queue,
		status:   statusStore,
		validate: validator.New(),
		log:      log,
	}
}

// Register mounts the routes on a router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/estimates", h.create)
	rg.GET("/estimates/:id", h.get)
	rg.GET("/estimates/:id/audit", h.getAudit)
}

// create accepts a multipart blueprint upload plus assumptions, stores the
// PDF, and queues the run. Responds 202 with the run id.
func (h *Handler) create(c *gin.Context) {
	file, _, err := c.Request.FormFile("blueprint")
	if err != nil {
		respondError(c, apperr.Validation("blueprint file is required"))
		return
	}
	defer file.Close()

	pdf, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, "reading upload failed", err))
		return
	}
	if len(pdf) > maxUploadBytes {
		respondError(c, apperr.Validation("blueprint exceeds the 50 MB upload limit"))
		return
	}

	req := transport.EstimateRequest{
		Zip: c.PostForm("zip"),
		Assumptions: transport.Assumptions{
			DuctConfig:      c.PostForm("duct_config"),
			HeatingFuel:     c.PostForm("heating_fuel"),
			ConstructionEra: c.PostForm("construction_era"),
			FoundationType:  c.PostForm("foundation_type"),
		},
	}
	if raw := c.PostForm("window_spec"); raw != "" {
		var spec transport.WindowSpec
		if err := json.Unmarshal([]byte(raw), &spec); err != nil {
			respondError(c, apperr.Validation("window_spec is not valid JSON"))
			return
		}
		req.Assumptions.WindowSpec = &spec
	}
	if raw := c.PostForm("envelope_overrides"); raw != "" {
		var overrides transport.EnvelopeOverrides
		if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
			respondError(c, apperr.Validation("envelope_overrides is not valid JSON"))
			return
		}
		req.Assumptions.EnvelopeOverrides = &overrides
	}

	if err := h.validate.Struct(req); err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, "invalid request", err))
		return
	}

	runID := uuid.NewString()
	blobRef := "uploads/" + runID + ".pdf"

	ctx := c.Request.Context()
	if err := h.blobs.Put(ctx, blobRef, pdf); err != nil {
		respondError(c, apperr.Wrap(apperr.KindInternal, "storing blueprint failed", err))
		return
	}
	if err := h.status.Set(ctx, status.Record{RunID: runID, State: status.StateQueued}); err != nil {
		respondError(c, apperr.Wrap(apperr.KindInternal, "recording run failed", err))
		return
	}
	if err := h.queue.EnqueueEstimateRun(ctx, scheduler.EstimateRunPayload{
		RunID:       runID,
		BlobRef:     blobRef,
		Zip:         req.Zip,
		Assumptions: req.Assumptions,
	}); err != nil {
		respondError(c, apperr.Wrap(apperr.KindInternal, "queueing run failed", err))
		return
	}

	c.JSON(http.StatusAccepted, transport.StatusResponse{RunID: runID, Status: status.StateQueued})
}

// get returns the run state and, when finished, the outcome.
func (h *Handler) get(c *gin.Context) {
	rec, err := h.status.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"run_id": rec.RunID,
		"status": rec.State,
	}
	if rec.Error != "" {
		resp["error"] = rec.Error
	}
	if len(rec.Outcome) > 0 {
		resp["outcome"] = json.RawMessage(rec.Outcome)
	}
	c.JSON(http.StatusOK, resp)
}

// getAudit returns only the audit report of a finished run.
func (h *Handler) getAudit(c *gin.Context) {
	rec, err := h.status.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if rec.State != status.StateDone {
		respondError(c, apperr.NotFound("run has no audit report yet"))
		return
	}

	var outcome estimate.Outcome
	if err := json.Unmarshal(rec.Outcome, &outcome); err != nil || outcome.Report == nil {
		respondError(c, apperr.Internal("stored outcome is unreadable"))
		return
	}
	c.JSON(http.StatusOK, outcome.Report)
}

func respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
