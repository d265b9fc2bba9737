// Package engine provides the contact enrichment lifecycle manager. It
// orchestrates non-blocking enrichment: contact creation opens a pending
// record and queues a job, a worker pool drives the provider calls, and
// every status write goes through the storage layer's guarded transitions.
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnrichmentJob represents one unit of provider work: fetch facts for a
// contact and settle its enrichment record.
type EnrichmentJob struct {
	// EnrichmentID is the record the job settles.
	EnrichmentID string

	// ContactID is the owning contact.
	ContactID string

	// Queued is when the job entered the queue.
	Queued time.Time

	// Attempt tracks requeue attempts for this job.
	Attempt int
}

// Config holds configuration for the lifecycle manager.
type Config struct {
	// NumWorkers is the number of enrichment worker goroutines (default: 4).
	NumWorkers int

	// QueueSize is the size of the job queue buffer (default: 1000).
	QueueSize int

	// ShutdownTimeout is the maximum time to wait for workers to drain
	// on shutdown (default: 30s).
	ShutdownTimeout time.Duration

	// MaxRetries is the maximum number of requeue attempts after
	// transient storage errors (default: 3). Provider failures are not
	// retried automatically; they settle the record as failed.
	MaxRetries int

	// RecoveryBatchSize is the number of records to recover per batch
	// at startup (default: 100).
	RecoveryBatchSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		NumWorkers:        4,
		QueueSize:         1000,
		ShutdownTimeout:   30 * time.Second,
		MaxRetries:        3,
		RecoveryBatchSize: 100,
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.NumWorkers < 1 {
		return fmt.Errorf("NumWorkers must be >= 1, got %d", c.NumWorkers)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("QueueSize must be >= 1, got %d", c.QueueSize)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("ShutdownTimeout must be >= 0, got %v", c.ShutdownTimeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MaxRetries must be >= 0, got %d", c.MaxRetries)
	}
	if c.RecoveryBatchSize < 1 {
		return fmt.Errorf("RecoveryBatchSize must be >= 1, got %d", c.RecoveryBatchSize)
	}
	return nil
}

// NewID generates a unique entity ID in the format prefix:slug, e.g.
// "ct:2f1c...". Prefixes in use: ct (contacts), tk (tasks), nt (notes),
// vl (voice logs), en (enrichments).
func NewID(prefix string) string {
	return prefix + ":" + uuid.NewString()
}
