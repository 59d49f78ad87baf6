package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr       string
	LogLevel   string
	LogFormat  string
	SeedFile   string
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Audit      AuditConfig
	Compliance ComplianceConfig
	Parameters ParameterConfig
}

// DatabaseConfig points the parameter and rule stores at PostgreSQL.
// An empty URL selects the in-memory stores.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig configures the parameter resolution cache.
// An empty URL selects the in-process cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit publisher.
// No brokers selects the database or in-memory audit store.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
	// ConsumerGroup materializes the audit topic into the database when one
	// is configured. Empty disables the consumer.
	ConsumerGroup string
}

// AuditConfig sizes the asynchronous audit queue.
type AuditConfig struct {
	Buffer int
	// OpsSampleRate is the fraction of operational events kept, in [0, 1].
	OpsSampleRate float64
}

// ComplianceConfig bounds rule evaluation.
type ComplianceConfig struct {
	// ProviderTimeout applies to each rule provider fetch independently.
	ProviderTimeout time.Duration
	// EvaluationTimeout bounds a whole Evaluate call.
	EvaluationTimeout time.Duration
}

// ParameterConfig controls the resolution cache.
type ParameterConfig struct {
	CacheTTL         time.Duration
	CacheGranularity time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:      getString("REFUNDS_ADDR", ":8080"),
		LogLevel:  getString("LOG_LEVEL", "info"),
		LogFormat: getString("LOG_FORMAT", "json"),
		SeedFile:  os.Getenv("SEED_FILE"),
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: getInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: getInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic:    getString("AUDIT_TOPIC", "refund-decision-audit"),
			ConsumerGroup: getString("AUDIT_CONSUMER_GROUP", "refund-audit-materializer"),
		},
		Audit: AuditConfig{
			Buffer:        getInt("AUDIT_BUFFER", 1024),
			OpsSampleRate: getFloat("AUDIT_OPS_SAMPLE_RATE", 1),
		},
		Compliance: ComplianceConfig{
			ProviderTimeout:   getDuration("PROVIDER_TIMEOUT", 2*time.Second),
			EvaluationTimeout: getDuration("EVALUATION_TIMEOUT", 5*time.Second),
		},
		Parameters: ParameterConfig{
			CacheTTL:         getDuration("PARAMETER_CACHE_TTL", 30*time.Second),
			CacheGranularity: getDuration("PARAMETER_CACHE_GRANULARITY", time.Minute),
		},
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 1 {
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
