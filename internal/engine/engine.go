package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ekkohq/ekko/internal/provider"
	"github.com/ekkohq/ekko/internal/storage"
	"github.com/ekkohq/ekko/pkg/types"
)

// Engine is the enrichment lifecycle manager. It owns the job queue and
// worker pool and is the only component that drives enrichment status
// transitions. Records for different contacts are fully independent; per
// record, jobs settle in acceptance order because every write is guarded
// by the expected source status.
type Engine struct {
	config Config

	store    storage.Store
	provider provider.Provider

	queue           chan *EnrichmentJob
	workerWaitGroup sync.WaitGroup
	workerCtx       context.Context
	workerCancel    context.CancelFunc

	// dropped holds contact IDs whose queued jobs must be skipped because
	// the contact was deleted mid-flight.
	dropped map[string]struct{}

	started      bool
	shuttingDown bool
	mu           sync.RWMutex

	// onStatusChange is fired after every accepted transition, for UI
	// push updates.
	onStatusChange func(contactID string, status types.EnrichmentStatus)
}

// New creates a lifecycle manager over the given store and provider.
func New(store storage.Store, prov provider.Provider, cfg Config) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if prov == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		config:   cfg,
		store:    store,
		provider: prov,
		queue:    make(chan *EnrichmentJob, cfg.QueueSize),
		dropped:  make(map[string]struct{}),
	}, nil
}

// SetOnStatusChange sets a callback fired after every accepted status
// transition. Used for WebSocket broadcast.
func (e *Engine) SetOnStatusChange(callback func(contactID string, status types.EnrichmentStatus)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStatusChange = callback
}

// Start starts the worker pool and kicks off recovery of records left
// unfinished by a previous run. Must be called before queueing work.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return fmt.Errorf("engine already started")
	}

	e.workerCtx, e.workerCancel = context.WithCancel(context.Background())

	// Snapshot records stranded in processing before any worker can claim
	// a job, so work claimed by this run is never mistaken for work
	// interrupted by the previous one.
	stranded, err := e.store.ListEnrichmentsByStatus(ctx, types.EnrichmentProcessing, e.config.RecoveryBatchSize)
	if err != nil {
		log.Printf("ERROR: failed to list interrupted enrichments: %v", err)
		stranded = nil
	}

	for i := 0; i < e.config.NumWorkers; i++ {
		e.workerWaitGroup.Add(1)
		go e.worker(e.workerCtx, i)
	}
	log.Printf("Started %d enrichment workers", e.config.NumWorkers)

	// Recovery runs in the background so Start returns quickly.
	go func() {
		if err := e.RecoverInterrupted(ctx, stranded); err != nil {
			log.Printf("ERROR: Enrichment recovery failed: %v", err)
		}
	}()

	e.started = true
	return nil
}

// Shutdown closes the queue and waits for workers to drain, bounded by
// ShutdownTimeout.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return fmt.Errorf("engine not started")
	}
	e.shuttingDown = true
	e.mu.Unlock()

	log.Println("Shutting down enrichment engine...")
	close(e.queue)

	done := make(chan struct{})
	go func() {
		e.workerWaitGroup.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("All enrichment workers finished gracefully")
	case <-time.After(e.config.ShutdownTimeout):
		log.Printf("WARNING: Shutdown timeout reached, %d enrichment jobs may be dropped", len(e.queue))
	case <-ctx.Done():
		log.Printf("WARNING: Shutdown cancelled, %d enrichment jobs may be dropped", len(e.queue))
		e.workerCancel()
		return ctx.Err()
	}

	e.workerCancel()

	e.mu.Lock()
	e.started = false
	e.mu.Unlock()
	return nil
}

// OpenForContact creates the pending enrichment record for a newly stored
// contact and queues its first job. The contact row must already exist.
func (e *Engine) OpenForContact(ctx context.Context, contact *types.Contact) (*types.Enrichment, error) {
	if contact == nil || contact.ID == "" {
		return nil, storage.ErrInvalidInput
	}

	now := time.Now()
	enrichment := &types.Enrichment{
		ID:        NewID("en"),
		ContactID: contact.ID,
		Status:    types.EnrichmentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.store.CreateEnrichment(ctx, enrichment); err != nil {
		return nil, fmt.Errorf("failed to open enrichment: %w", err)
	}

	if !e.queueJob(&EnrichmentJob{EnrichmentID: enrichment.ID, ContactID: contact.ID, Queued: now}) {
		// Record stays pending; recovery or an explicit retry picks it
		// up later.
		log.Printf("WARNING: enrichment for contact %s stored but not queued", contact.ID)
	}

	return enrichment, nil
}

// RequestRefresh re-enters the lifecycle for a contact whose record is in
// a terminal state. Previously stored facts are kept until replaced. A
// record already pending or processing is left alone: the running cycle
// covers the request.
func (e *Engine) RequestRefresh(ctx context.Context, contactID string) (*types.Enrichment, error) {
	enrichment, err := e.store.GetEnrichmentByContact(ctx, contactID)
	if err != nil {
		return nil, err
	}

	if !enrichment.Status.IsTerminal() {
		return enrichment, nil
	}

	if err := e.store.TransitionStatus(ctx, enrichment.ID, enrichment.Status, types.EnrichmentPending); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// Another request beat us to it; the cycle is underway.
			return e.store.GetEnrichmentByContact(ctx, contactID)
		}
		return nil, err
	}
	e.notify(contactID, types.EnrichmentPending)

	if !e.queueJob(&EnrichmentJob{EnrichmentID: enrichment.ID, ContactID: contactID, Queued: time.Now()}) {
		log.Printf("WARNING: refresh for contact %s accepted but not queued", contactID)
	}

	return e.store.GetEnrichmentByContact(ctx, contactID)
}

// DropForContact tells the engine the contact is gone: any queued or
// in-flight job for it is abandoned on sight. The enrichment row itself
// is removed by the storage cascade.
func (e *Engine) DropForContact(contactID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dropped[contactID] = struct{}{}
}

// QueueLength returns the current number of queued jobs.
func (e *Engine) QueueLength() int {
	return len(e.queue)
}

func (e *Engine) isDropped(contactID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.dropped[contactID]
	return ok
}

func (e *Engine) clearDropped(contactID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.dropped, contactID)
}

func (e *Engine) notify(contactID string, status types.EnrichmentStatus) {
	e.mu.RLock()
	cb := e.onStatusChange
	e.mu.RUnlock()
	if cb != nil {
		cb(contactID, status)
	}
}
