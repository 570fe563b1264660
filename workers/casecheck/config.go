package casecheck

import "time"

// Config holds case-check worker configuration
type Config struct {
	Workers     int // Number of parallel processing goroutines
	QueueSize   int // Size of the processing queue
	MaxAttempts int // Attempts before a failed case check is left alone

	// Timeout bounds a single assessment, all chunks included
	Timeout time.Duration
	// SupervisorInterval is how often queued and retryable case checks are re-enqueued
	SupervisorInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 100
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Minute
	}
	if c.SupervisorInterval <= 0 {
		c.SupervisorInterval = 30 * time.Second
	}
}
