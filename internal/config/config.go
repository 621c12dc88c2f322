package config

import (
	"os"
	"strconv"
	"strings"
)

// Config centralizes runtime settings for the API and workers.
type Config struct {
	Port string

	AuthToken   string
	CORSOrigins []string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisStream   string
	RedisDLQ      string
	RedisGroup    string
	RedisConsumer string

	RateLimitRPS   float64
	RateLimitBurst int

	OCRLocalURL            string
	OCRLocalTimeoutMS      int
	OCRCloudURL            string
	OCRCloudAPIKey         string
	OCRCloudTimeoutMS      int
	OCRConfidenceThreshold float64

	DiffModifySimilarity float64

	CategoryRegistryPath string
	RuleCacheTTLSeconds  int
	ReviewThreshold      int

	BlobDir string

	WorkerEnabled       bool
	WorkerCount         int
	AutoAnalyze         bool
	JobMaxAttempts      int
	JobTimeoutMS        int
	VisibilityTimeoutMS int
	SweepIntervalMS     int
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		AuthToken:   getEnv("API_AUTH_TOKEN", ""),
		CORSOrigins: getEnvList("CORS_ORIGINS", nil),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisStream:   getEnv("REDIS_STREAM", "docintel_jobs"),
		RedisDLQ:      getEnv("REDIS_DLQ_STREAM", "docintel_jobs_dlq"),
		RedisGroup:    getEnv("REDIS_GROUP", "docintel_workers"),
		RedisConsumer: getEnv("REDIS_CONSUMER", "api-1"),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),

		OCRLocalURL:            getEnv("OCR_LOCAL_URL", ""),
		OCRLocalTimeoutMS:      getEnvInt("OCR_LOCAL_TIMEOUT_MS", 5000),
		OCRCloudURL:            getEnv("OCR_CLOUD_URL", ""),
		OCRCloudAPIKey:         getEnv("OCR_CLOUD_API_KEY", ""),
		OCRCloudTimeoutMS:      getEnvInt("OCR_CLOUD_TIMEOUT_MS", 30000),
		OCRConfidenceThreshold: getEnvFloat("OCR_CONFIDENCE_THRESHOLD", 0.85),

		DiffModifySimilarity: getEnvFloat("DIFF_MODIFY_SIMILARITY", 0.6),

		CategoryRegistryPath: getEnv("CATEGORY_REGISTRY_PATH", ""),
		RuleCacheTTLSeconds:  getEnvInt("RULE_CACHE_TTL_SECONDS", 300),
		ReviewThreshold:      getEnvInt("REVIEW_THRESHOLD", 3),

		BlobDir: getEnv("BLOB_DIR", "blobs"),

		WorkerEnabled:       getEnvBool("WORKER_ENABLED", true),
		WorkerCount:         getEnvInt("WORKER_COUNT", 2),
		AutoAnalyze:         getEnvBool("AUTO_ANALYZE", true),
		JobMaxAttempts:      getEnvInt("JOB_MAX_ATTEMPTS", 3),
		JobTimeoutMS:        getEnvInt("JOB_TIMEOUT_MS", 300000),
		VisibilityTimeoutMS: getEnvInt("VISIBILITY_TIMEOUT_MS", 600000),
		SweepIntervalMS:     getEnvInt("SWEEP_INTERVAL_MS", 60000),
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
