// Package config loads service configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type MatchingConfig struct {
	RadiusKm float64
	Limit    int
}

type KafkaConfig struct {
	Brokers            []string
	BookingTopic       string
	NotificationsTopic string
	GroupID            string
}

type Config struct {
	ServiceName string

	HTTPAddr string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	RedisAddr     string
	RedisPassword string

	Kafka KafkaConfig

	JWTSecret     string
	JWTTTLMinutes int

	Matching MatchingConfig

	MapsAPIKey string

	// Worker settings.
	NoShowSweepMinutes int
	NoShowGraceMinutes int
}

func Load() Config {
	_ = godotenv.Load(".env")

	cfg := Config{}

	cfg.ServiceName = cast.ToString(getOrDefault("RIDEWAY_SERVICE_NAME", "rideway"))
	cfg.HTTPAddr = cast.ToString(getOrDefault("RIDEWAY_HTTP_ADDR", ":8080"))

	cfg.PostgresHost = cast.ToString(getOrDefault("POSTGRES_HOST", "localhost"))
	cfg.PostgresPort = cast.ToString(getOrDefault("POSTGRES_PORT", "5432"))
	cfg.PostgresUser = cast.ToString(getOrDefault("POSTGRES_USER", "postgres"))
	cfg.PostgresPassword = cast.ToString(getOrDefault("POSTGRES_PASSWORD", "postgres"))
	cfg.PostgresDB = cast.ToString(getOrDefault("POSTGRES_DB", "rideway"))

	cfg.RedisAddr = cast.ToString(getOrDefault("REDIS_ADDR", "localhost:6379"))
	cfg.RedisPassword = cast.ToString(getOrDefault("REDIS_PASSWORD", ""))

	cfg.Kafka.Brokers = strings.Split(cast.ToString(getOrDefault("KAFKA_BROKERS", "localhost:9092")), ",")
	cfg.Kafka.BookingTopic = cast.ToString(getOrDefault("KAFKA_BOOKING_TOPIC", "booking_events"))
	cfg.Kafka.NotificationsTopic = cast.ToString(getOrDefault("KAFKA_NOTIFICATIONS_TOPIC", "notifications"))
	cfg.Kafka.GroupID = cast.ToString(getOrDefault("KAFKA_GROUP_ID", "rideway-worker"))

	cfg.JWTSecret = cast.ToString(getOrDefault("JWT_SECRET", "dev-secret-change-me"))
	cfg.JWTTTLMinutes = cast.ToInt(getOrDefault("JWT_TTL_MINUTES", 24*60))

	cfg.Matching.RadiusKm = cast.ToFloat64(getOrDefault("RIDEWAY_MATCH_RADIUS_KM", 10.0))
	cfg.Matching.Limit = cast.ToInt(getOrDefault("RIDEWAY_MATCH_LIMIT", 20))

	cfg.MapsAPIKey = cast.ToString(getOrDefault("GOOGLE_MAPS_API_KEY", ""))

	cfg.NoShowSweepMinutes = cast.ToInt(getOrDefault("NO_SHOW_SWEEP_MINUTES", 5))
	cfg.NoShowGraceMinutes = cast.ToInt(getOrDefault("NO_SHOW_GRACE_MINUTES", 30))

	return cfg
}

// DSN builds the Postgres connection URL.
func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
	)
}

func getOrDefault(key string, defaultValue interface{}) interface{} {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}
