package engine

import (
	"log"
	"time"
)

// queueJob attempts to queue a job without blocking. Returns false if the
// queue is full or the engine is shutting down.
func (e *Engine) queueJob(job *EnrichmentJob) bool {
	e.mu.RLock()
	canQueue := e.started && !e.shuttingDown
	e.mu.RUnlock()
	if !canQueue {
		return false
	}

	select {
	case e.queue <- job:
		return true
	default:
		log.Printf("WARNING: Enrichment queue full (size=%d), dropping job for contact %s",
			e.config.QueueSize, job.ContactID)
		return false
	}
}

// requeueJob attempts to requeue a job after a transient failure. Returns
// false if max retries are exceeded, shutdown is in progress, or the queue
// stays full.
func (e *Engine) requeueJob(job *EnrichmentJob) bool {
	e.mu.RLock()
	canQueue := e.started && !e.shuttingDown
	e.mu.RUnlock()
	if !canQueue {
		log.Printf("WARNING: not requeueing job for contact %s, shutdown in progress", job.ContactID)
		return false
	}

	if job.Attempt >= e.config.MaxRetries {
		log.Printf("Max retries (%d) exceeded for contact %s, giving up", e.config.MaxRetries, job.ContactID)
		return false
	}
	job.Attempt++

	select {
	case e.queue <- job:
		log.Printf("Requeued enrichment job for contact %s (attempt %d/%d)",
			job.ContactID, job.Attempt, e.config.MaxRetries)
		return true
	case <-time.After(10 * time.Millisecond):
		log.Printf("WARNING: failed to requeue job for contact %s, queue timeout", job.ContactID)
		return false
	}
}
