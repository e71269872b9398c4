// Package config provides runtime configuration values for the service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Event brokers.
const (
	BrokerLog      = "log"
	BrokerRabbitMQ = "rabbitmq"
	BrokerKafka    = "kafka"
)

// Config holds configuration knobs for the HTTP server, storage, event
// dispatch and auth.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string

	StorageBackend string
	DataDir        string
	DatabaseURL    string

	RedisURL       string
	IdempotencyTTL time.Duration

	EventsBroker string
	AMQPURL      string
	AMQPExchange string
	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret          string
	AllowAdminPurchase bool

	InitialWorkerCount      int
	WorkerMin               int
	WorkerMax               int
	ScaleInterval           time.Duration
	ScaleUpBacklogPerWorker int
	ScaleDownIdleTicks      int
	QueueHighWatermark      int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolenv(key string, def bool) bool {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func listenv(key string) []string {
	var out []string
	for _, part := range strings.Split(getenv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load collects configuration from environment with defaults.
func Load() Config {
	minWorkers := atoienv("WORKER_MIN", 1)
	maxWorkers := atoienv("WORKER_MAX", 4)
	initialWorkers := atoienv("WORKER_COUNT", minWorkers)
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 15),
		LogLevel:        strings.ToLower(getenv("LOG_LEVEL", "info")),

		StorageBackend: strings.ToLower(getenv("STORAGE_BACKEND", BackendFile)),
		DataDir:        getenv("DATA_DIR", "./data"),
		DatabaseURL:    getenv("DATABASE_URL", ""),

		RedisURL:       getenv("REDIS_URL", ""),
		IdempotencyTTL: durenvs("IDEMPOTENCY_TTL_SEC", 86400),

		EventsBroker: strings.ToLower(getenv("EVENTS_BROKER", BrokerLog)),
		AMQPURL:      getenv("AMQP_URL", ""),
		AMQPExchange: getenv("AMQP_EXCHANGE", "storefront"),
		KafkaBrokers: listenv("KAFKA_BROKERS"),
		KafkaTopic:   getenv("KAFKA_TOPIC", "ticket-events"),

		JWTSecret:          getenv("JWT_SECRET", ""),
		AllowAdminPurchase: boolenv("ALLOW_ADMIN_PURCHASE", false),

		InitialWorkerCount:      initialWorkers,
		WorkerMin:               minWorkers,
		WorkerMax:               maxWorkers,
		ScaleInterval:           durenvms("SCALE_INTERVAL_MS", 500),
		ScaleUpBacklogPerWorker: atoienv("SCALE_UP_BACKLOG_PER_WORKER", 100),
		ScaleDownIdleTicks:      atoienv("SCALE_DOWN_IDLE_TICKS", 6),
		QueueHighWatermark:      atoienv("QUEUE_HIGH_WATERMARK", 5000),
	}
}

// Validate reports every inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.StorageBackend {
	case BackendMemory:
	case BackendFile:
		if c.DataDir == "" {
			errs = append(errs, errors.New("DATA_DIR is required for the file backend"))
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}
	switch c.EventsBroker {
	case BrokerLog:
	case BrokerRabbitMQ:
		if c.AMQPURL == "" {
			errs = append(errs, errors.New("AMQP_URL is required for the rabbitmq broker"))
		}
	case BrokerKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka broker"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EVENTS_BROKER %q", c.EventsBroker))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_LEVEL %q", c.LogLevel))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.WorkerMin < 1 || c.WorkerMax < c.WorkerMin {
		errs = append(errs, fmt.Errorf("worker bounds invalid: min=%d max=%d", c.WorkerMin, c.WorkerMax))
	}
	if c.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("IDEMPOTENCY_TTL_SEC must be positive"))
	}
	return errors.Join(errs...)
}
