package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	TablePrefix string

	// Storage backends
	DBDriver    string // "postgres" or "memory"
	DatabaseURL string
	BlobDriver  string // "s3" or "memory"
	S3Bucket    string
	S3Region    string
	S3Endpoint  string // Empty for AWS; set for MinIO and other S3-compatible stores
	S3AccessKey string
	S3SecretKey string
	S3KeyPrefix string

	// Auth
	JWKSURL   string
	JWTSecret string // HS256 secret for local development when no JWKS URL is set

	// Sharing
	PublicLinkTTL       time.Duration // 0 = links never expire
	PublicLinkCacheSize int
	PublicLinkCacheTTL  time.Duration

	// Files
	MaxUploadBytes      int64
	OrphanSweepInterval time.Duration // 0 disables the background sweeper

	// Logging
	LogDir      string
	LogMaxFiles int
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: getTablePrefix(env),

		DBDriver:    getEnv("DB_DRIVER", "postgres"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		BlobDriver:  getEnv("BLOB_DRIVER", "s3"),
		S3Bucket:    getEnv("S3_BUCKET", "foldershare"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3KeyPrefix: getEnv("S3_KEY_PREFIX", ""),

		JWKSURL:   getEnv("JWKS_URL", ""),
		JWTSecret: getEnv("JWT_SECRET", ""),

		PublicLinkTTL:       getDuration("PUBLIC_LINK_TTL", 0),
		PublicLinkCacheSize: getInt("PUBLIC_LINK_CACHE_SIZE", 1024),
		PublicLinkCacheTTL:  getDuration("PUBLIC_LINK_CACHE_TTL", 30*time.Second),

		MaxUploadBytes:      int64(getInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),
		OrphanSweepInterval: getDuration("ORPHAN_SWEEP_INTERVAL", 10*time.Minute),

		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: getInt("LOG_MAX_FILES", 10),
	}
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getDuration parses Go duration syntax ("90s", "24h"); bare integers are seconds
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}
