package engine

import (
	"context"
	"errors"
	"log"

	"github.com/ekkohq/ekko/internal/storage"
	"github.com/ekkohq/ekko/pkg/types"
)

// RecoverInterrupted re-queues enrichment work left unfinished by a
// previous run. stranded is the set of processing records captured
// before this run's workers started; anything that enters processing
// later belongs to a live worker and must not be touched. Stranded
// records are settled as failed (the in-flight call is gone for good)
// and then retried through the normal failed -> pending path, so the
// state machine is never bypassed. Records still pending are queued
// directly.
func (e *Engine) RecoverInterrupted(ctx context.Context, stranded []*types.Enrichment) error {
	log.Println("Starting enrichment recovery...")

	requeued := 0

	for _, rec := range stranded {
		if err := e.store.MarkFailed(ctx, rec.ID, "interrupted by restart"); err != nil {
			if !errors.Is(err, storage.ErrConflict) && !errors.Is(err, storage.ErrNotFound) {
				log.Printf("ERROR: recovery failed to settle %s: %v", rec.ID, err)
			}
			continue
		}
		if err := e.store.TransitionStatus(ctx, rec.ID, types.EnrichmentFailed, types.EnrichmentPending); err != nil {
			if !errors.Is(err, storage.ErrConflict) && !errors.Is(err, storage.ErrNotFound) {
				log.Printf("ERROR: recovery failed to retry %s: %v", rec.ID, err)
			}
			continue
		}
		if e.queueJob(&EnrichmentJob{EnrichmentID: rec.ID, ContactID: rec.ContactID}) {
			requeued++
		}
	}

	pending, err := e.store.ListEnrichmentsByStatus(ctx, types.EnrichmentPending, e.config.RecoveryBatchSize)
	if err != nil {
		return err
	}
	for _, rec := range pending {
		if e.queueJob(&EnrichmentJob{EnrichmentID: rec.ID, ContactID: rec.ContactID}) {
			requeued++
		}
	}

	log.Printf("Recovery complete: requeued %d enrichment jobs", requeued)
	return nil
}
