package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	AppPort               string
	AppEnv                string
	AppCorsAllowedOrigins []string
	TrustedProxyCIDRs     []string

	BackendBaseURL string

	JWTSecret string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBMigrate  bool

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	StorageProvider string

	S3Bucket       string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3Endpoint     string
	S3PublicDomain string

	FirebaseBucket          string
	FirebaseCredentialsFile string

	ChatRoot      string
	GroupChatRoot string

	MediaCacheDir           string
	MediaCacheRetentionDays float64

	UploadConcurrency int
	UploadMaxAssets   int
	UploadMaxFileSize int64
	JPEGQuality       int

	PendingRedeliveryAfter       time.Duration
	PendingRedeliveryMaxAttempts int
	PendingSendingLease          time.Duration
	PendingRedeliveryCron        string
	CacheCleanupCron             string

	DownloadAllowedHosts []string
	DownloadAllowPrivate bool

	RateLimitSendPerMinute int
}

func LoadAppConfig() *AppConfig {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, reading from system environment variables")
	}

	return &AppConfig{
		AppPort:               mustGetEnv("APP_PORT"),
		AppEnv:                getEnv("APP_ENV", "development"),
		AppCorsAllowedOrigins: splitList(getEnv("APP_CORS_ALLOWED_ORIGINS", "*")),
		TrustedProxyCIDRs:     splitList(getEnv("TRUSTED_PROXY_CIDRS", "")),

		BackendBaseURL: withTrailingSlash(mustGetEnv("BACKEND_BASE_URL")),

		JWTSecret: mustGetEnv("JWT_SECRET"),

		DBHost:     mustGetEnv("DB_HOST"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     mustGetEnv("DB_USER"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     mustGetEnv("DB_NAME"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBMigrate:  getEnvAsBool("DB_MIGRATE", false),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		StorageProvider: getEnv("STORAGE_PROVIDER", "s3"),

		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Region:       getEnv("S3_REGION", ""),
		S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		S3PublicDomain: getEnv("S3_PUBLIC_DOMAIN", ""),

		FirebaseBucket:          getEnv("FIREBASE_BUCKET", ""),
		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),

		ChatRoot:      getEnv("CHAT_ROOT", "CHAT"),
		GroupChatRoot: getEnv("GROUP_CHAT_ROOT", "GROUPCHAT"),

		MediaCacheDir:           getEnv("MEDIA_CACHE_DIR", "./data"),
		MediaCacheRetentionDays: getEnvAsFloat("MEDIA_CACHE_RETENTION_DAYS", 30),

		UploadConcurrency: getEnvAsInt("UPLOAD_CONCURRENCY", 0),
		UploadMaxAssets:   getEnvAsInt("UPLOAD_MAX_ASSETS", 30),
		UploadMaxFileSize: int64(getEnvAsInt("UPLOAD_MAX_FILE_SIZE", 200*1024*1024)),
		JPEGQuality:       getEnvAsInt("JPEG_QUALITY", 85),

		PendingRedeliveryAfter:       getEnvAsDuration("PENDING_REDELIVERY_AFTER", 5*time.Minute),
		PendingRedeliveryMaxAttempts: getEnvAsInt("PENDING_REDELIVERY_MAX_ATTEMPTS", 5),
		PendingSendingLease:          getEnvAsDuration("PENDING_SENDING_LEASE", 30*time.Minute),
		PendingRedeliveryCron:        getEnv("PENDING_REDELIVERY_CRON", "*/5 * * * *"),
		CacheCleanupCron:             getEnv("CACHE_CLEANUP_CRON", "0 3 * * *"),

		DownloadAllowedHosts: splitList(getEnv("DOWNLOAD_ALLOWED_HOSTS", "")),
		DownloadAllowPrivate: getEnvAsBool("DOWNLOAD_ALLOW_PRIVATE", false),

		RateLimitSendPerMinute: getEnvAsInt("RATE_LIMIT_SEND_PER_MINUTE", 30),
	}
}

func (c *AppConfig) DBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBName, c.DBPassword, c.DBSSLMode)
}

func (c *AppConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func withTrailingSlash(value string) string {
	if strings.HasSuffix(value, "/") {
		return value
	}
	return value + "/"
}

func mustGetEnv(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		slog.Error("Environment variable is required but not set", "key", key)
		os.Exit(1)
	}
	return value
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		slog.Warn("Environment variable must be an integer, using fallback", "key", key, "value", valStr, "fallback", fallback)
		return fallback
	}
	return val
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		slog.Warn("Environment variable must be a float, using fallback", "key", key, "value", valStr, "fallback", fallback)
		return fallback
	}
	return val
}

func getEnvAsBool(key string, fallback bool) bool {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		slog.Warn("Environment variable must be a boolean, using fallback", "key", key, "value", valStr, "fallback", fallback)
		return fallback
	}
	return val
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	val, err := time.ParseDuration(valStr)
	if err != nil {
		slog.Warn("Environment variable must be a duration, using fallback", "key", key, "value", valStr, "fallback", fallback)
		return fallback
	}
	return val
}
