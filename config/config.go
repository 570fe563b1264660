package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port int
	Host string
	Env  string // "development" or "production"

	// Data directory
	DataDir string

	// Database
	DatabasePath string

	// Logging
	LogLevel     string
	DBLogQueries bool

	// Assessment pipeline
	ChunkSize       int
	ChunkOverlap    int
	ChunkLookback   int
	RepairPasses    int
	RequireEvidence bool
	MaxConcurrency  int
	ChecklistPath   string

	// Case-check worker
	Workers       int
	QueueSize     int
	MaxAttempts   int
	AssessTimeout time.Duration

	// Inbox watcher (disabled when empty)
	InboxDir string

	// External services
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAIMaxTokens   int
	OpenAITemperature float32

	MeiliHost   string
	MeiliAPIKey string
	MeiliIndex  string

	QdrantHost         string
	QdrantPort         int
	QdrantAPIKey       string
	QdrantCollection   string
	KBExamplesPerCheck int

	KafkaEnabled         bool
	KafkaBrokers         []string
	KafkaTopicCompleted  string
	KafkaTopicEscalation string
	KafkaPrincipal       string

	OSSRegion          string
	OSSBucket          string
	OSSAccessKeyID     string
	OSSAccessKeySecret string
	OSSPrefix          string
}

var (
	cfg  *Config
	once sync.Once
)

// Get returns the global configuration (singleton)
func Get() *Config {
	once.Do(func() {
		// A missing .env is normal outside local development
		_ = godotenv.Load()
		cfg = load()
	})
	return cfg
}

// load reads configuration from environment variables
func load() *Config {
	dataDir := getEnv("DATA_DIR", "./data")

	return &Config{
		// Server
		Port: getEnvInt("PORT", 8080),
		Host: getEnv("HOST", "0.0.0.0"),
		Env:  getEnv("ENV", "development"),

		// Data
		DataDir:      dataDir,
		DatabasePath: getEnv("DATABASE_PATH", filepath.Join(dataDir, "coaching-ai.sqlite")),

		// Logging
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DBLogQueries: getEnvBool("DB_LOG_QUERIES", false),

		// Assessment
		ChunkSize:       getEnvInt("CHUNK_SIZE", 20000),
		ChunkOverlap:    getEnvInt("CHUNK_OVERLAP", 2000),
		ChunkLookback:   getEnvInt("CHUNK_LOOKBACK", 200),
		RepairPasses:    getEnvInt("REPAIR_PASSES", 2),
		RequireEvidence: getEnvBool("REQUIRE_EVIDENCE", true),
		MaxConcurrency:  getEnvInt("MAX_CONCURRENCY", 4),
		ChecklistPath:   getEnv("CHECKLIST_PATH", ""),

		// Worker
		Workers:       getEnvInt("WORKERS", 2),
		QueueSize:     getEnvInt("QUEUE_SIZE", 100),
		MaxAttempts:   getEnvInt("MAX_ATTEMPTS", 3),
		AssessTimeout: getEnvDuration("ASSESS_TIMEOUT", 10*time.Minute),

		InboxDir: getEnv("INBOX_DIR", ""),

		// OpenAI
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIMaxTokens:   getEnvInt("OPENAI_MAX_TOKENS", 8000),
		OpenAITemperature: float32(getEnvFloat("OPENAI_TEMPERATURE", 0)),

		// Meilisearch
		MeiliHost:   getEnv("MEILI_HOST", ""),
		MeiliAPIKey: getEnv("MEILI_API_KEY", ""),
		MeiliIndex:  getEnv("MEILI_INDEX", "case_checks"),

		// Qdrant
		QdrantHost:         getEnv("QDRANT_HOST", ""),
		QdrantPort:         getEnvInt("QDRANT_PORT", 6334),
		QdrantAPIKey:       getEnv("QDRANT_API_KEY", ""),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "case_check_examples"),
		KBExamplesPerCheck: getEnvInt("KB_EXAMPLES_PER_CHECK", 1),

		// Kafka
		KafkaEnabled:         getEnvBool("KAFKA_ENABLED", false),
		KafkaBrokers:         getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaTopicCompleted:  getEnv("KAFKA_TOPIC_COMPLETED", "case-check.completed"),
		KafkaTopicEscalation: getEnv("KAFKA_TOPIC_ESCALATION", "case-check.escalation"),
		KafkaPrincipal:       getEnv("KAFKA_PRINCIPAL", "coaching-ai"),

		// Aliyun OSS
		OSSRegion:          getEnv("OSS_REGION", ""),
		OSSBucket:          getEnv("OSS_BUCKET", ""),
		OSSAccessKeyID:     getEnv("OSS_ACCESS_KEY_ID", ""),
		OSSAccessKeySecret: getEnv("OSS_ACCESS_KEY_SECRET", ""),
		OSSPrefix:          getEnv("OSS_PREFIX", "case-checks"),
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings such as "90s" or "10m"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty items
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
