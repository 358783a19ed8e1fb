package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultDatabaseURL     = "file:pulsegen.db"
	defaultJWTSecret       = "change-me-jwt-secret"
	defaultJWTAccessTTL    = "24h"
	defaultMediaDir        = "./uploads/videos"
	defaultMaxUploadSize   = "524288000"
	defaultAnalysisDelay   = "10s"
	defaultFlagThreshold   = "0.7"
	defaultAnalysisWorkers = "4"
	defaultQueueSize       = "256"
	defaultBackend         = BackendMemory
	defaultRedisURL        = "localhost:6379"
	defaultRedisKey        = "pulsegen:analysis"
	defaultCacheSize       = "1024"
	defaultCacheTTL        = "5m"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
)

// Analysis backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	AppEnv       string
	HTTPAddr     string
	DatabaseURL  string
	JWTSecret    string
	JWTAccessTTL time.Duration

	MediaDir      string
	MaxUploadSize int64

	AnalysisDelay         time.Duration
	AnalysisFlagThreshold float64
	AnalysisWorkers       int
	AnalysisQueueSize     int
	AnalysisBackend       string
	RedisURL              string
	AnalysisRedisKey      string

	VideoCacheSize int
	VideoCacheTTL  time.Duration

	LogLevel  string
	LogFormat string

	CORSAllowedOrigins []string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.MediaDir = strings.TrimSpace(getEnv("MEDIA_DIR", defaultMediaDir))
	cfg.AnalysisBackend = strings.ToLower(strings.TrimSpace(getEnv("ANALYSIS_BACKEND", defaultBackend)))
	cfg.RedisURL = strings.TrimSpace(getEnv("REDIS_URL", defaultRedisURL))
	cfg.AnalysisRedisKey = strings.TrimSpace(getEnv("ANALYSIS_REDIS_KEY", defaultRedisKey))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel)))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(getEnv("LOG_FORMAT", defaultLogFormat)))
	cfg.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	var err error
	if cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultJWTAccessTTL); err != nil {
		return nil, err
	}
	if cfg.AnalysisDelay, err = parseDurationEnv("ANALYSIS_DELAY", defaultAnalysisDelay); err != nil {
		return nil, err
	}
	if cfg.VideoCacheTTL, err = parseDurationEnv("VIDEO_CACHE_TTL", defaultCacheTTL); err != nil {
		return nil, err
	}
	if cfg.MaxUploadSize, err = parseInt64Env("MAX_UPLOAD_SIZE", defaultMaxUploadSize); err != nil {
		return nil, err
	}
	if cfg.AnalysisWorkers, err = parseIntEnv("ANALYSIS_WORKERS", defaultAnalysisWorkers); err != nil {
		return nil, err
	}
	if cfg.AnalysisQueueSize, err = parseIntEnv("ANALYSIS_QUEUE_SIZE", defaultQueueSize); err != nil {
		return nil, err
	}
	if cfg.VideoCacheSize, err = parseIntEnv("VIDEO_CACHE_SIZE", defaultCacheSize); err != nil {
		return nil, err
	}
	if cfg.AnalysisFlagThreshold, err = parseFloatEnv("ANALYSIS_FLAG_THRESHOLD", defaultFlagThreshold); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.MediaDir == "" {
		return fmt.Errorf("MEDIA_DIR must not be empty")
	}
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.AnalysisDelay < 0 {
		return fmt.Errorf("ANALYSIS_DELAY must be >= 0")
	}
	if cfg.VideoCacheTTL <= 0 {
		return fmt.Errorf("VIDEO_CACHE_TTL must be > 0")
	}
	if cfg.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be > 0")
	}
	if cfg.AnalysisWorkers <= 0 {
		return fmt.Errorf("ANALYSIS_WORKERS must be > 0")
	}
	if cfg.AnalysisQueueSize <= 0 {
		return fmt.Errorf("ANALYSIS_QUEUE_SIZE must be > 0")
	}
	if cfg.VideoCacheSize <= 0 {
		return fmt.Errorf("VIDEO_CACHE_SIZE must be > 0")
	}
	if cfg.AnalysisFlagThreshold < 0 || cfg.AnalysisFlagThreshold > 1 {
		return fmt.Errorf("ANALYSIS_FLAG_THRESHOLD must be within [0, 1]")
	}
	switch cfg.AnalysisBackend {
	case BackendMemory:
	case BackendRedis:
		if cfg.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set when ANALYSIS_BACKEND=redis")
		}
		if cfg.AnalysisRedisKey == "" {
			return fmt.Errorf("ANALYSIS_REDIS_KEY must not be empty")
		}
	default:
		return fmt.Errorf("ANALYSIS_BACKEND must be one of: memory, redis")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}

	if cfg.IsProduction() && isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
		return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
	}
	return nil
}

// IsProduction reports whether APP_ENV names a production-like environment.
func (c *Config) IsProduction() bool {
	return isProdLike(c.AppEnv)
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseInt64Env(name, fallback string) (int64, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseFloatEnv(name, fallback string) (float64, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return f, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
