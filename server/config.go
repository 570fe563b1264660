package server

import (
	"time"

	"github.com/Octopus-Moneycoach/coaching-ai/assessment"
	"github.com/Octopus-Moneycoach/coaching-ai/db"
	"github.com/Octopus-Moneycoach/coaching-ai/events"
	"github.com/Octopus-Moneycoach/coaching-ai/workers/casecheck"
	"github.com/Octopus-Moneycoach/coaching-ai/workers/inbox"
)

// Config holds server configuration
type Config struct {
	// Server infrastructure (immutable, requires restart)
	Port int
	Host string
	Env  string // "development" or "production"

	DatabasePath string
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

	// Inbox watcher, disabled when empty
	InboxDir string

	// Reference examples per check from the knowledge base
	KBExamplesPerCheck int

	// Kafka
	KafkaEnabled         bool
	KafkaBrokers         []string
	KafkaTopicCompleted  string
	KafkaTopicEscalation string
	KafkaPrincipal       string
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// ToDBConfig converts server config to database config
func (c *Config) ToDBConfig() db.Config {
	return db.Config{
		Path:            c.DatabasePath,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 0, // Never expire
		LogQueries:      c.DBLogQueries,
	}
}

// ToPipelineConfig converts server config to assessment pipeline config
func (c *Config) ToPipelineConfig() assessment.Config {
	return assessment.Config{
		Chunking: assessment.ChunkConfig{
			Size:     c.ChunkSize,
			Overlap:  c.ChunkOverlap,
			Lookback: c.ChunkLookback,
		},
		Validation: assessment.ValidatorConfig{
			RepairPasses:    c.RepairPasses,
			RequireEvidence: c.RequireEvidence,
		},
		MaxConcurrency: c.MaxConcurrency,
	}
}

// ToWorkerConfig converts server config to case-check worker config
func (c *Config) ToWorkerConfig() casecheck.Config {
	return casecheck.Config{
		Workers:     c.Workers,
		QueueSize:   c.QueueSize,
		MaxAttempts: c.MaxAttempts,
		Timeout:     c.AssessTimeout,
	}
}

// ToEventsConfig converts server config to Kafka publisher config
func (c *Config) ToEventsConfig() *events.Config {
	return &events.Config{
		Brokers:         c.KafkaBrokers,
		TopicCompleted:  c.KafkaTopicCompleted,
		TopicEscalation: c.KafkaTopicEscalation,
		Principal:       c.KafkaPrincipal,
		Enabled:         c.KafkaEnabled,
	}
}

// ToInboxConfig converts server config to inbox watcher config
func (c *Config) ToInboxConfig() inbox.Config {
	return inbox.Config{Dir: c.InboxDir}
}
