// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"os"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// RedisConfig provides settings for the redis-backed queue and status store.
type RedisConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

// MinIOConfig provides settings for MinIO S3-compatible blueprint storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketBlueprints() string
	IsMinIOEnabled() bool
}

// VisionConfig provides settings for the vision provider.
type VisionConfig interface {
	GetGeminiAPIKey() string
	GetVisionModels() []string
	GetVisionTimeout() time.Duration
	GetVisionTotalBudget() time.Duration
	GetVisionConcurrency() int
	IsVisionEnabled() bool
}

// PipelineConfig provides limits and overrides for the estimate pipeline.
type PipelineConfig interface {
	GetScaleOverride() float64 // 0 means unset
	GetMinRoomSqft() float64
	GetMaxRoomSqft() float64
	GetMinTotalSqft() float64
	GetMaxTotalSqft() float64
	GetMaxRoomCount() int
	GetRunDeadline() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env      string
	HTTPAddr string

	CORSAllowAll bool
	CORSOrigins  []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MinIOEndpoint         string
	MinIOAccessKey        string
	MinIOSecretKey        string
	MinIOUseSSL           bool
	MinioBucketBlueprints string

	RendererURL string

	GeminiAPIKey      string
	VisionModels      []string
	VisionTimeout     time.Duration
	VisionTotalBudget time.Duration
	VisionConcurrency int

	ScaleOverride float64
	MinRoomSqft   float64
	MaxRoomSqft   float64
	MinTotalSqft  float64
	MaxTotalSqft  float64
	MaxRoomCount  int
	RunDeadline   time.Duration
}

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// RedisConfig implementation
func (c *Config) GetRedisAddr() string     { return c.RedisAddr }
func (c *Config) GetRedisPassword() string { return c.RedisPassword }
func (c *Config) GetRedisDB() int          { return c.RedisDB }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string         { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string        { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string        { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool             { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketBlueprints() string { return c.MinioBucketBlueprints }
func (c *Config) IsMinIOEnabled() bool             { return c.MinIOEndpoint != "" }

// GetRendererURL returns the page-render service base URL.
func (c *Config) GetRendererURL() string { return c.RendererURL }

// VisionConfig implementation
func (c *Config) GetGeminiAPIKey() string            { return c.GeminiAPIKey }
func (c *Config) GetVisionModels() []string          { return c.VisionModels }
func (c *Config) GetVisionTimeout() time.Duration    { return c.VisionTimeout }
func (c *Config) GetVisionTotalBudget() time.Duration { return c.VisionTotalBudget }
func (c *Config) GetVisionConcurrency() int          { return c.VisionConcurrency }
func (c *Config) IsVisionEnabled() bool              { return c.GeminiAPIKey != "" }

// PipelineConfig implementation
func (c *Config) GetScaleOverride() float64    { return c.ScaleOverride }
func (c *Config) GetMinRoomSqft() float64      { return c.MinRoomSqft }
func (c *Config) GetMaxRoomSqft() float64      { return c.MaxRoomSqft }
func (c *Config) GetMinTotalSqft() float64     { return c.MinTotalSqft }
func (c *Config) GetMaxTotalSqft() float64     { return c.MaxTotalSqft }
func (c *Config) GetMaxRoomCount() int         { return c.MaxRoomCount }
func (c *Config) GetRunDeadline() time.Duration { return c.RunDeadline }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		CORSAllowAll: corsAllowAll,
		CORSOrigins:  corsOrigins,

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       mustInt(getEnv("REDIS_DB", "0")),

		MinIOEndpoint:         getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:        getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:        getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:           strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketBlueprints: getEnv("MINIO_BUCKET_BLUEPRINTS", "blueprints"),

		RendererURL: getEnv("RENDERER_URL", "http://localhost:7431"),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		VisionModels:      splitCSV(getEnv("VISION_MODELS", "gemini-2.5-pro,gemini-2.5-flash")),
		VisionTimeout:     secondsEnv("VISION_TIMEOUT_S", 120),
		VisionTotalBudget: secondsEnv("VISION_TOTAL_BUDGET_S", 240),
		VisionConcurrency: mustInt(getEnv("VISION_CONCURRENCY", "2")),

		ScaleOverride: mustFloat(getEnv("SCALE_OVERRIDE", "0")),
		MinRoomSqft:   mustFloat(getEnv("MIN_ROOM_SQFT", "40")),
		MaxRoomSqft:   mustFloat(getEnv("MAX_ROOM_SQFT", "1000")),
		MinTotalSqft:  mustFloat(getEnv("MIN_TOTAL_SQFT", "500")),
		MaxTotalSqft:  mustFloat(getEnv("MAX_TOTAL_SQFT", "10000")),
		MaxRoomCount:  mustInt(getEnv("MAX_ROOM_COUNT", "40")),
		RunDeadline:   secondsEnv("RUN_DEADLINE_S", 300),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}

func secondsEnv(key string, fallback int) time.Duration {
	raw := getEnv(key, strconv.Itoa(fallback))
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
