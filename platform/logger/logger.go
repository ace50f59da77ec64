// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RunIDKey is the context key for the estimate run ID
	RunIDKey contextKey = "run_id"
	// JobIDKey is the context key for the background job ID
	JobIDKey contextKey = "job_id"
	// RequestIDKey is the context key for HTTP request ID
	RequestIDKey contextKey = "request_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports run_id, job_id, and request_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if runID, ok := ctx.Value(RunIDKey).(string); ok && runID != "" {
		newLogger = newLogger.WithRunID(runID)
	}

	if jobID, ok := ctx.Value(JobIDKey).(string); ok && jobID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("job_id", jobID)),
		}
	}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("request_id", requestID)),
		}
	}

	return newLogger
}

// WithRunID returns a logger with the estimate run ID attached
func (l *Logger) WithRunID(runID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("run_id", runID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs an HTTP error
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// StageComplete logs completion of a pipeline stage
func (l *Logger) StageComplete(stage string, durationMs float64) {
	l.Info("stage_complete",
		slog.String("stage", stage),
		slog.Float64("duration_ms", durationMs),
	)
}

// StageDegraded logs a pipeline stage that completed in degraded mode
func (l *Logger) StageDegraded(stage string, reason string) {
	l.Warn("stage_degraded",
		slog.String("stage", stage),
		slog.String("reason", reason),
	)
}

// ClampApplied logs a sanity clamp or guardrail being applied
func (l *Logger) ClampApplied(clampType string, original, clamped float64) {
	l.Warn("clamp_applied",
		slog.String("clamp", clampType),
		slog.Float64("original", original),
		slog.Float64("clamped", clamped),
	)
}

// VisionCall logs a vision provider call outcome
func (l *Logger) VisionCall(model string, success bool, latencyMs float64, err error) {
	if success {
		l.Info("vision_call",
			slog.String("model", model),
			slog.Bool("success", true),
			slog.Float64("latency_ms", latencyMs),
		)
		return
	}
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	l.Warn("vision_call",
		slog.String("model", model),
		slog.Bool("success", false),
		slog.Float64("latency_ms", latencyMs),
		slog.String("error", errMsg),
	)
}
