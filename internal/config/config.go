package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev-secret-change-me"

type Config struct {
	Env        string
	LogLevel   string
	ServerPort string
	CORSOrigin string

	// Store selects the repository backend: "postgres" or "memory".
	Store       string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	AutoMigrate bool

	RedisURL  string
	JWTSecret string

	KafkaBrokers            []string
	KafkaMessagesTopic      string
	KafkaNotificationsTopic string
	KafkaGroupID            string

	OTelEndpoint    string
	OTelServiceName string
	OTelSampleRatio float64

	SendRateLimit  int
	SendRateWindow time.Duration
	UserCacheSize  int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env file", "error", err)
	}

	return &Config{
		Env:        getEnv("ENV", "development"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),

		Store:       getEnv("STORE", "postgres"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "chronofeed"),
		DBPassword:  getEnv("DB_PASSWORD", "chronofeed_dev_password"),
		DBName:      getEnv("DB_NAME", "chronofeed"),
		AutoMigrate: getEnvBool("AUTO_MIGRATE", true),

		RedisURL:  getEnv("REDIS_URL", ""),
		JWTSecret: getEnv("JWT_SECRET", devJWTSecret),

		KafkaBrokers:            splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaMessagesTopic:      getEnv("KAFKA_MESSAGES_TOPIC", "messages.created"),
		KafkaNotificationsTopic: getEnv("KAFKA_NOTIFICATIONS_TOPIC", "notifications.requested"),
		KafkaGroupID:            getEnv("KAFKA_GROUP_ID", "chronofeed-notifications"),

		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", "chronofeed"),
		OTelSampleRatio: getEnvRatio("OTEL_TRACES_SAMPLER_ARG", 1.0),

		SendRateLimit:  getEnvInt("SEND_RATE_LIMIT", 30),
		SendRateWindow: getEnvDuration("SEND_RATE_WINDOW", time.Minute),
		UserCacheSize:  getEnvInt("USER_CACHE_SIZE", 1024),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects settings that are only acceptable in development.
func (c *Config) Validate() error {
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == devJWTSecret) {
		return errors.New("JWT_SECRET must be set in production")
	}
	return nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvRatio(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil || f < 0 || f > 1 {
		return fallback
	}
	return f
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
