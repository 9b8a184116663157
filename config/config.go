package config

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

const defaultJWTSecret = "change-me-in-production"

type Config struct {
	Port         string
	MongoURI     string
	DBName       string
	StoreBackend string // "mongo" or "memory"

	S3Bucket      string
	S3Region      string
	S3AccessKeyID string
	S3SecretKey   string
	S3PublicBase  string // optional CDN/base URL for uploaded objects
	MaxUploadMB   int64

	JWTSecret     string
	AdminEmail    string
	AdminPassword string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	AdminNotify  string // store operator inbox for new-order mail

	RedisURL        string
	KafkaBrokers    []string
	KafkaTopic      string
	DispatchWorkers int
	MaxAttempts     int

	MailConfigEncryptionKey []byte // 32 bytes for AES-256; optional, base64 in env
}

func Load() (*Config, error) {
	_ = os.Setenv("AWS_REGION", getEnv("AWS_REGION", "us-east-1"))

	var encKey []byte
	if k := getEnv("MAIL_CONFIG_ENCRYPTION_KEY", ""); k != "" {
		encKey, _ = base64.StdEncoding.DecodeString(k)
		if len(encKey) != 32 {
			encKey = nil
		}
	}

	backend := strings.ToLower(getEnv("STORE_BACKEND", "mongo"))
	if backend != "mongo" && backend != "memory" {
		return nil, fmt.Errorf("STORE_BACKEND must be mongo or memory, got %q", backend)
	}

	var brokers []string
	for _, b := range strings.Split(getEnv("KAFKA_BROKERS", ""), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		MongoURI:                getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:                  getEnv("MONGODB_DB", "bookshop"),
		StoreBackend:            backend,
		S3Bucket:                getEnv("AWS_S3_BUCKET", ""),
		S3Region:                getEnv("AWS_REGION", "us-east-1"),
		S3AccessKeyID:           getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:             getEnv("AWS_SECRET_ACCESS_KEY", ""),
		S3PublicBase:            strings.TrimRight(getEnv("S3_PUBLIC_BASE_URL", ""), "/"),
		MaxUploadMB:             getInt64("MAX_UPLOAD_MB", 5),
		JWTSecret:               getEnv("JWT_SECRET", defaultJWTSecret),
		AdminEmail:              strings.ToLower(getEnv("ADMIN_EMAIL", "admin@example.com")),
		AdminPassword:           getEnv("ADMIN_PASSWORD", "admin123"),
		SMTPHost:                getEnv("SMTP_HOST", ""),
		SMTPPort:                int(getInt64("SMTP_PORT", 587)),
		SMTPUsername:            getEnv("SMTP_USERNAME", ""),
		SMTPPassword:            getEnv("SMTP_PASSWORD", ""),
		MailFrom:                getEnv("MAIL_FROM", "no-reply@example.com"),
		AdminNotify:             getEnv("ADMIN_NOTIFY_EMAIL", ""),
		RedisURL:                getEnv("REDIS_URL", ""),
		KafkaBrokers:            brokers,
		KafkaTopic:              getEnv("KAFKA_TOPIC", "bookshop.orders"),
		DispatchWorkers:         int(getInt64("DISPATCH_WORKERS", 2)),
		MaxAttempts:             int(getInt64("NOTIFY_MAX_ATTEMPTS", 8)),
		MailConfigEncryptionKey: encKey,
	}, nil
}

// MaxUploadBytes is the upload ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB * 1024 * 1024
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// RequiredEnvVars are checked at startup in production mode; app exits if any are unset.
var RequiredEnvVars = []string{
	"MONGODB_URI",
	"MONGODB_DB",
	"JWT_SECRET",
	"ADMIN_EMAIL",
	"ADMIN_PASSWORD",
	"AWS_S3_BUCKET",
	"AWS_REGION",
}

// OptionalEnvVars are logged at startup so you can confirm they are loaded when set.
var OptionalEnvVars = []string{
	"PORT",
	"SMTP_HOST",
	"SMTP_USERNAME",
	"SMTP_PASSWORD",
	"ADMIN_NOTIFY_EMAIL",
	"REDIS_URL",
	"KAFKA_BROKERS",
	"MAIL_CONFIG_ENCRYPTION_KEY",
}

var secretEnvVars = map[string]bool{
	"SMTP_PASSWORD":              true,
	"ADMIN_PASSWORD":             true,
	"MAIL_CONFIG_ENCRYPTION_KEY": true,
	"AWS_SECRET_ACCESS_KEY":      true,
	"JWT_SECRET":                 true,
}

// CheckEnv reports missing required variables and rejects a default JWT secret.
func CheckEnv() error {
	var missing []string
	for _, key := range RequiredEnvVars {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env: %s (set these in .env or environment)", strings.Join(missing, ", "))
	}
	if os.Getenv("JWT_SECRET") == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set to a strong secret (not the default %s)", defaultJWTSecret)
	}
	if k := os.Getenv("MAIL_CONFIG_ENCRYPTION_KEY"); k != "" {
		dec, _ := base64.StdEncoding.DecodeString(k)
		if len(dec) != 32 {
			return fmt.Errorf("MAIL_CONFIG_ENCRYPTION_KEY must be 32 bytes base64 (got %d bytes); generate with: openssl rand -base64 32", len(dec))
		}
	}
	return nil
}

// ValidateEnv logs the status of required and optional env vars and exits if CheckEnv fails.
func ValidateEnv() {
	if err := CheckEnv(); err != nil {
		log.Fatal(err)
	}
	for _, key := range append(append([]string{}, RequiredEnvVars...), OptionalEnvVars...) {
		v := strings.TrimSpace(os.Getenv(key))
		switch {
		case v == "":
			log.Printf("env %s not set (optional)", key)
		case secretEnvVars[key]:
			log.Printf("env %s loaded", key)
		default:
			log.Printf("env %s = %s", key, v)
		}
	}
	log.Println("env check complete")
}
