package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBDriver   string // "sqlite" or "postgres"
	DBPath     string // sqlite file path
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Report moderation secret (gates submit/audit/delete)
	ReportSecret string

	// Attachment storage
	StorageBackend    string // "disk" or "s3"
	UploadsDir        string
	MaxAttachmentSize int64
	MaxContentLength  int

	// S3 (used when StorageBackend == "s3")
	S3Endpoint   string
	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3DisableTLS bool

	// Orphan sweep
	SweepInterval time.Duration
	SweepGrace    time.Duration

	// Server
	Port        string
	CORSOrigins string
	BodyLimit   int
}

func Load() *Config {
	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBPath:     getEnv("DB_PATH", "data.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "leakbox"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		ReportSecret: getEnv("REPORT_PWD", ""),

		StorageBackend:    getEnv("STORAGE_BACKEND", "disk"),
		UploadsDir:        getEnv("UPLOADS_DIR", "uploads"),
		MaxAttachmentSize: parseInt64(getEnv("MAX_ATTACHMENT_SIZE", "5242880"), 5<<20),
		MaxContentLength:  int(parseInt64(getEnv("MAX_CONTENT_LENGTH", "2000"), 2000)),

		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
		S3Region:     getEnv("S3_REGION", "us-east-1"),
		S3Bucket:     getEnv("S3_BUCKET", "leakbox-uploads"),
		S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  getEnv("S3_SECRET_KEY", ""),
		S3DisableTLS: parseBool(getEnv("S3_DISABLE_TLS", "false")),

		SweepInterval: parseDuration(getEnv("SWEEP_INTERVAL", "1h"), time.Hour),
		SweepGrace:    parseDuration(getEnv("SWEEP_GRACE", "30m"), 30*time.Minute),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		BodyLimit:   int(parseInt64(getEnv("BODY_LIMIT", "16777216"), 16<<20)),
	}
}

// DSN builds the postgres connection string. Only meaningful when
// DBDriver is "postgres".
func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseInt64(s string, fallback int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
