package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ekkohq/ekko/internal/storage"
	"github.com/ekkohq/ekko/pkg/types"
)

// worker is a goroutine that processes enrichment jobs until the queue is
// closed.
func (e *Engine) worker(ctx context.Context, workerID int) {
	defer e.workerWaitGroup.Done()

	log.Printf("Enrichment worker %d started", workerID)
	for job := range e.queue {
		e.processJob(ctx, workerID, job)
	}
	log.Printf("Enrichment worker %d stopped", workerID)
}

// processJob runs one enrichment cycle: claim, provider call, settle.
// Every status write is guarded; a conflict means another actor already
// moved the record, and the job is abandoned without side effects.
func (e *Engine) processJob(ctx context.Context, workerID int, job *EnrichmentJob) {
	if e.isDropped(job.ContactID) {
		e.clearDropped(job.ContactID)
		log.Printf("Worker %d: skipping job for deleted contact %s", workerID, job.ContactID)
		return
	}

	// Status writes use a background context so a shutdown mid-job never
	// leaves a record stranded in processing.
	dbCtx := context.Background()

	// Exponential backoff for requeued jobs.
	if job.Attempt > 0 {
		time.Sleep(time.Duration(job.Attempt*job.Attempt) * 100 * time.Millisecond)
	}

	// Claim: pending -> processing.
	err := e.store.TransitionStatus(dbCtx, job.EnrichmentID, types.EnrichmentPending, types.EnrichmentProcessing)
	switch {
	case errors.Is(err, storage.ErrConflict):
		// Another worker holds the job, or a superseding request moved
		// the record. Nothing to do.
		log.Printf("Worker %d: claim conflict for %s, skipping", workerID, job.EnrichmentID)
		return
	case errors.Is(err, storage.ErrNotFound):
		// Contact deleted after queueing; cascade removed the record.
		return
	case err != nil:
		log.Printf("ERROR: Worker %d failed to claim %s: %v", workerID, job.EnrichmentID, err)
		e.requeueJob(job)
		return
	}
	e.notify(job.ContactID, types.EnrichmentProcessing)

	contact, err := e.store.GetContact(dbCtx, job.ContactID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted between claim and fetch; the record is gone too.
			return
		}
		log.Printf("ERROR: Worker %d failed to load contact %s: %v", workerID, job.ContactID, err)
		e.settleFailed(workerID, job, "contact unavailable: "+err.Error())
		return
	}

	facts, err := e.provider.Enrich(ctx, contact)
	if err != nil {
		log.Printf("Worker %d: provider %s failed for contact %s: %v",
			workerID, e.provider.Name(), job.ContactID, err)
		e.settleFailed(workerID, job, err.Error())
		return
	}

	// Settle: processing -> complete, replacing facts wholesale.
	if err := e.store.CompleteWithFacts(dbCtx, job.EnrichmentID, facts, time.Now()); err != nil {
		if errors.Is(err, storage.ErrConflict) || errors.Is(err, storage.ErrNotFound) {
			// Stale result: the record moved on (or vanished) while the
			// provider was running. Discard silently.
			log.Printf("Worker %d: stale completion for %s discarded", workerID, job.EnrichmentID)
			return
		}
		log.Printf("ERROR: Worker %d failed to complete %s: %v", workerID, job.EnrichmentID, err)
		return
	}

	log.Printf("Worker %d completed enrichment for contact %s", workerID, job.ContactID)
	e.notify(job.ContactID, types.EnrichmentComplete)
}

// settleFailed moves the record processing -> failed, absorbing guard
// misses.
func (e *Engine) settleFailed(workerID int, job *EnrichmentJob, detail string) {
	err := e.store.MarkFailed(context.Background(), job.EnrichmentID, detail)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) || errors.Is(err, storage.ErrNotFound) {
			return
		}
		log.Printf("ERROR: Worker %d failed to mark %s failed: %v", workerID, job.EnrichmentID, err)
		return
	}
	e.notify(job.ContactID, types.EnrichmentFailed)
}
