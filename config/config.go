package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPHost string
	HTTPPort string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MySQLDSN     string
	MySQLMaxOpen int
	MySQLMaxIdle int
	MySQLMaxLife time.Duration

	AWSRegion           string
	AttachmentContainer string
	SignedURLTTL        time.Duration

	SESSourceEmail string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	TextlocalAPIKey string
	TextlocalSender string

	BitlyToken string

	DefaultEmailProvider string
	DefaultSmsProvider   string

	ConsumerConcurrency int
	BusMaxAttempts      int
	InflightLockTTL     time.Duration

	MonitorInterval  time.Duration
	TelemetryBackend string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		HTTPHost: getEnv("HTTP_HOST", "0.0.0.0"),
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MySQLDSN:     getEnv("MYSQL_DSN", "root:root@tcp(127.0.0.1:3306)/notifications?parseTime=true"),
		MySQLMaxOpen: getEnvInt("MYSQL_MAX_OPEN", 10),
		MySQLMaxIdle: getEnvInt("MYSQL_MAX_IDLE", 5),
		MySQLMaxLife: getEnvDuration("MYSQL_MAX_LIFE", 5*time.Minute),

		AWSRegion:           getEnv("AWS_REGION", "eu-west-1"),
		AttachmentContainer: getEnv("ATTACHMENT_CONTAINER", "attachments"),
		SignedURLTTL:        getEnvDuration("SIGNED_URL_TTL", 7*24*time.Hour),

		SESSourceEmail: getEnv("SES_SOURCE_EMAIL", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),

		TextlocalAPIKey: getEnv("TEXTLOCAL_API_KEY", ""),
		TextlocalSender: getEnv("TEXTLOCAL_SENDER", "NOTIFY"),

		BitlyToken: getEnv("BITLY_TOKEN", ""),

		DefaultEmailProvider: getEnv("DEFAULT_EMAIL_PROVIDER", "smtp"),
		DefaultSmsProvider:   getEnv("DEFAULT_SMS_PROVIDER", "textlocal"),

		ConsumerConcurrency: getEnvInt("CONSUMER_CONCURRENCY", 1),
		BusMaxAttempts:      getEnvInt("BUS_MAX_ATTEMPTS", 5),
		InflightLockTTL:     getEnvDuration("INFLIGHT_LOCK_TTL", 2*time.Minute),

		MonitorInterval:  getEnvDuration("MONITOR_INTERVAL", 60*time.Second),
		TelemetryBackend: getEnv("TELEMETRY_BACKEND", "log"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
