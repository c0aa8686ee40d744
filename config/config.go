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
	SourceScreener = "screener"
	SourceMongo    = "mongo"

	EventsNone     = "none"
	EventsKafka    = "kafka"
	EventsRabbitMQ = "rabbitmq"
)

type Config struct {
	Port     string
	LogLevel string

	SentryDSN        string
	SentrySampleRate float64
	Environment      string

	StatementSource string
	CompanyURL      string
	ParallelRules   bool

	MongoURI        string
	Database        string
	StockCollection string

	EventsBackend         string
	KafkaBootstrapServers string
	KafkaTopic            string
	KafkaTopicPartitions  int
	KafkaReplication      int
	RabbitMQServer        string
	RabbitMQPort          string
	RabbitMQUser          string
	RabbitMQPass          string
	RabbitMQQueue         string

	CloudinaryURL string

	Watchlist         []string
	WatchlistInterval time.Duration
}

// GetEnv retrieves the environment variable with a default value if not set.
func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// ParseWatchlist splits a comma separated symbol list, dropping blanks.
func ParseWatchlist(raw string) []string {
	var symbols []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	interval, err := time.ParseDuration(GetEnv("WATCHLIST_INTERVAL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid WATCHLIST_INTERVAL: %w", err)
	}

	cfg := &Config{
		Port:     GetEnv("PORT", "4000"),
		LogLevel: GetEnv("LOG_LEVEL", "info"),

		SentryDSN:        os.Getenv("SENTRY_DSN"),
		SentrySampleRate: getEnvFloat("SENTRY_SAMPLE_RATE", 1.0),
		Environment:      GetEnv("ENVIRONMENT", "development"),

		StatementSource: strings.ToLower(GetEnv("STATEMENT_SOURCE", SourceScreener)),
		CompanyURL:      strings.TrimRight(GetEnv("COMPANY_URL", "https://www.screener.in"), "/"),
		ParallelRules:   getEnvBool("PARALLEL_RULES", true),

		MongoURI:        os.Getenv("MONGO_URI"),
		Database:        GetEnv("DATABASE", "stockbackend"),
		StockCollection: GetEnv("STOCK_COLLECTION", "companies"),

		EventsBackend:         strings.ToLower(GetEnv("EVENTS_BACKEND", EventsNone)),
		KafkaBootstrapServers: os.Getenv("KAFKA_BOOTSTRAPSERVERS"),
		KafkaTopic:            GetEnv("KAFKA_TOPIC", "buffett-analysis"),
		KafkaTopicPartitions:  getEnvInt("KAFKA_TOPIC_PARTITIONS", 1),
		KafkaReplication:      getEnvInt("KAFKA_TOPIC_REPL_FACTOR", 1),
		RabbitMQServer:        GetEnv("RABBITMQ_SERVER", "localhost"),
		RabbitMQPort:          GetEnv("RABBITMQ_PORT", "5672"),
		RabbitMQUser:          GetEnv("RABBITMQ_USER", "guest"),
		RabbitMQPass:          GetEnv("RABBITMQ_PASS", "guest"),
		RabbitMQQueue:         GetEnv("RABBITMQ_QUEUE", "buffett-analysis"),

		CloudinaryURL: os.Getenv("CLOUDINARY_URL"),

		Watchlist:         ParseWatchlist(os.Getenv("WATCHLIST")),
		WatchlistInterval: interval,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StatementSource {
	case SourceScreener:
	case SourceMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STATEMENT_SOURCE=%s", SourceMongo)
		}
	default:
		return fmt.Errorf("unknown STATEMENT_SOURCE %q", c.StatementSource)
	}

	switch c.EventsBackend {
	case EventsNone, EventsRabbitMQ:
	case EventsKafka:
		if c.KafkaBootstrapServers == "" {
			return fmt.Errorf("KAFKA_BOOTSTRAPSERVERS is required when EVENTS_BACKEND=%s", EventsKafka)
		}
	default:
		return fmt.Errorf("unknown EVENTS_BACKEND %q", c.EventsBackend)
	}

	if c.WatchlistInterval <= 0 {
		return fmt.Errorf("WATCHLIST_INTERVAL must be positive")
	}
	return nil
}
