package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ekkohq/ekko/internal/provider"
	"github.com/ekkohq/ekko/internal/storage"
	"github.com/ekkohq/ekko/internal/storage/sqlite"
	"github.com/ekkohq/ekko/pkg/types"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestEngine(t *testing.T, store storage.Store, prov provider.Provider) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.NumWorkers = 2
	cfg.ShutdownTimeout = 5 * time.Second
	eng, err := New(store, prov, cfg)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return eng
}

func createContact(t *testing.T, store storage.Store, id string) *types.Contact {
	t.Helper()
	now := time.Now().UTC()
	contact := &types.Contact{
		ID:        id,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Company:   "Analytical Engines",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateContact(context.Background(), contact); err != nil {
		t.Fatalf("CreateContact() failed: %v", err)
	}
	return contact
}

// waitForStatus polls until the contact's enrichment reaches the given
// status or the deadline passes.
func waitForStatus(t *testing.T, store storage.Store, contactID string, want types.EnrichmentStatus) *types.Enrichment {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := store.GetEnrichmentByContact(context.Background(), contactID)
		if err == nil && rec.Status == want {
			return rec
		}
		time.Sleep(10 * time.Millisecond)
	}
	rec, err := store.GetEnrichmentByContact(context.Background(), contactID)
	t.Fatalf("timed out waiting for status %q on %s (last: %+v, err: %v)", want, contactID, rec, err)
	return nil
}

// statusRecorder captures status change callbacks.
type statusRecorder struct {
	mu     sync.Mutex
	events map[string][]types.EnrichmentStatus
}

func newStatusRecorder() *statusRecorder {
	return &statusRecorder{events: map[string][]types.EnrichmentStatus{}}
}

func (r *statusRecorder) record(contactID string, status types.EnrichmentStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[contactID] = append(r.events[contactID], status)
}

func (r *statusRecorder) statuses(contactID string) []types.EnrichmentStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.EnrichmentStatus, len(r.events[contactID]))
	copy(out, r.events[contactID])
	return out
}

// failingProvider always returns a provider error.
type failingProvider struct{}

func (failingProvider) Name() string { return "failing" }
func (failingProvider) Enrich(context.Context, *types.Contact) (*types.EnrichmentFacts, error) {
	return nil, fmt.Errorf("%w: upstream unavailable", provider.ErrProvider)
}

// gatedProvider blocks each call until released.
type gatedProvider struct {
	release chan struct{}
}

func (g *gatedProvider) Name() string { return "gated" }
func (g *gatedProvider) Enrich(ctx context.Context, c *types.Contact) (*types.EnrichmentFacts, error) {
	select {
	case <-g.release:
		return &types.EnrichmentFacts{LinkedInURL: "https://linkedin.com/in/" + c.ID}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestLifecycleCompletes(t *testing.T) {
	store := newTestStore(t)
	eng := newTestEngine(t, store, provider.NewStaticProvider())
	rec := newStatusRecorder()
	eng.SetOnStatusChange(rec.record)

	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer func() { _ = eng.Shutdown(ctx) }()

	contact := createContact(t, store, "ct:ada")
	enrichment, err := eng.OpenForContact(ctx, contact)
	if err != nil {
		t.Fatalf("OpenForContact() failed: %v", err)
	}
	if enrichment.Status != types.EnrichmentPending {
		t.Errorf("initial status: got %q, want pending", enrichment.Status)
	}

	final := waitForStatus(t, store, "ct:ada", types.EnrichmentComplete)
	if final.Facts.IsEmpty() {
		t.Error("completed enrichment has no facts")
	}
	if final.LastEnrichedAt == nil {
		t.Error("LastEnrichedAt not set on completion")
	}
	if final.LastError != "" {
		t.Errorf("LastError: got %q, want empty", final.LastError)
	}

	statuses := rec.statuses("ct:ada")
	if len(statuses) < 2 || statuses[len(statuses)-1] != types.EnrichmentComplete {
		t.Errorf("callback statuses: got %v", statuses)
	}
}

func TestProviderFailureSettlesFailed(t *testing.T) {
	store := newTestStore(t)
	eng := newTestEngine(t, store, failingProvider{})

	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer func() { _ = eng.Shutdown(ctx) }()

	contact := createContact(t, store, "ct:ada")
	if _, err := eng.OpenForContact(ctx, contact); err != nil {
		t.Fatalf("OpenForContact() failed: %v", err)
	}

	rec := waitForStatus(t, store, "ct:ada", types.EnrichmentFailed)
	if rec.LastError == "" {
		t.Error("LastError empty on failed enrichment")
	}
}

func TestRefreshKeepsFactsUntilReplaced(t *testing.T) {
	store := newTestStore(t)
	gate := &gatedProvider{release: make(chan struct{})}
	eng := newTestEngine(t, store, gate)

	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer func() { _ = eng.Shutdown(ctx) }()

	contact := createContact(t, store, "ct:ada")
	if _, err := eng.OpenForContact(ctx, contact); err != nil {
		t.Fatalf("OpenForContact() failed: %v", err)
	}
	gate.release <- struct{}{}
	first := waitForStatus(t, store, "ct:ada", types.EnrichmentComplete)

	refreshed, err := eng.RequestRefresh(ctx, "ct:ada")
	if err != nil {
		t.Fatalf("RequestRefresh() failed: %v", err)
	}
	if refreshed.Status != types.EnrichmentPending {
		t.Errorf("refresh status: got %q, want pending", refreshed.Status)
	}
	if refreshed.Facts.LinkedInURL != first.Facts.LinkedInURL {
		t.Error("facts dropped on refresh")
	}
	if !refreshed.Refreshing() {
		t.Error("Refreshing(): got false during refresh cycle")
	}

	gate.release <- struct{}{}
	waitForStatus(t, store, "ct:ada", types.EnrichmentComplete)
}

func TestRefreshWhileRunningIsNoop(t *testing.T) {
	store := newTestStore(t)
	gate := &gatedProvider{release: make(chan struct{})}
	eng := newTestEngine(t, store, gate)

	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer func() {
		close(gate.release)
		_ = eng.Shutdown(ctx)
	}()

	contact := createContact(t, store, "ct:ada")
	if _, err := eng.OpenForContact(ctx, contact); err != nil {
		t.Fatalf("OpenForContact() failed: %v", err)
	}
	waitForStatus(t, store, "ct:ada", types.EnrichmentProcessing)

	// The record is mid-cycle; a refresh request must not disturb it.
	rec, err := eng.RequestRefresh(ctx, "ct:ada")
	if err != nil {
		t.Fatalf("RequestRefresh() failed: %v", err)
	}
	if rec.Status != types.EnrichmentProcessing {
		t.Errorf("status after no-op refresh: got %q, want processing", rec.Status)
	}
}

func TestDropForContactSkipsQueuedWork(t *testing.T) {
	store := newTestStore(t)
	gate := &gatedProvider{release: make(chan struct{})}
	cfg := DefaultConfig()
	cfg.NumWorkers = 1
	cfg.ShutdownTimeout = 5 * time.Second
	eng, err := New(store, gate, cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	recd := newStatusRecorder()
	eng.SetOnStatusChange(recd.record)

	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer func() { _ = eng.Shutdown(ctx) }()

	// Occupy the single worker with contact A.
	a := createContact(t, store, "ct:a")
	if _, err := eng.OpenForContact(ctx, a); err != nil {
		t.Fatalf("OpenForContact(a) failed: %v", err)
	}
	waitForStatus(t, store, "ct:a", types.EnrichmentProcessing)

	// Queue contact B behind it, then delete B.
	b := createContact(t, store, "ct:b")
	if _, err := eng.OpenForContact(ctx, b); err != nil {
		t.Fatalf("OpenForContact(b) failed: %v", err)
	}
	if err := store.DeleteContact(ctx, "ct:b"); err != nil {
		t.Fatalf("DeleteContact() failed: %v", err)
	}
	eng.DropForContact("ct:b")

	// Release A and let the queue drain.
	gate.release <- struct{}{}
	waitForStatus(t, store, "ct:a", types.EnrichmentComplete)

	deadline := time.Now().Add(2 * time.Second)
	for eng.QueueLength() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	// B's job was abandoned: no processing callback, no resurrected row.
	for _, s := range recd.statuses("ct:b") {
		if s == types.EnrichmentProcessing {
			t.Error("dropped contact reached processing")
		}
	}
	if _, err := store.GetEnrichmentByContact(ctx, "ct:b"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("enrichment for deleted contact: got %v, want ErrNotFound", err)
	}
}

func TestRecoveryRequeuesInterrupted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Seed records as a crashed run would have left them: one still
	// pending, one stranded in processing.
	createContact(t, store, "ct:pending")
	createContact(t, store, "ct:stranded")
	now := time.Now().UTC()
	for _, id := range []string{"ct:pending", "ct:stranded"} {
		rec := &types.Enrichment{
			ID:        "en:" + id,
			ContactID: id,
			Status:    types.EnrichmentPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := store.CreateEnrichment(ctx, rec); err != nil {
			t.Fatalf("CreateEnrichment() failed: %v", err)
		}
	}
	if err := store.TransitionStatus(ctx, "en:ct:stranded", types.EnrichmentPending, types.EnrichmentProcessing); err != nil {
		t.Fatalf("TransitionStatus() failed: %v", err)
	}

	eng := newTestEngine(t, store, provider.NewStaticProvider())
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer func() { _ = eng.Shutdown(ctx) }()

	waitForStatus(t, store, "ct:pending", types.EnrichmentComplete)
	waitForStatus(t, store, "ct:stranded", types.EnrichmentComplete)
}

func TestRecoveryIgnoresFreshlyClaimedWork(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// A record left pending by the previous run, with its job already
	// sitting in the queue when the engine comes up.
	createContact(t, store, "ct:fresh")
	now := time.Now().UTC()
	rec := &types.Enrichment{
		ID:        "en:ct:fresh",
		ContactID: "ct:fresh",
		Status:    types.EnrichmentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateEnrichment(ctx, rec); err != nil {
		t.Fatalf("CreateEnrichment() failed: %v", err)
	}

	gate := &gatedProvider{release: make(chan struct{})}
	cfg := DefaultConfig()
	cfg.NumWorkers = 1
	cfg.ShutdownTimeout = 5 * time.Second
	eng, err := New(store, gate, cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	recd := newStatusRecorder()
	eng.SetOnStatusChange(recd.record)

	eng.queue <- &EnrichmentJob{EnrichmentID: "en:ct:fresh", ContactID: "ct:fresh"}
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer func() { _ = eng.Shutdown(ctx) }()

	// The worker claims the job immediately; the recovery sweep runs
	// concurrently and must leave the claimed record alone.
	waitForStatus(t, store, "ct:fresh", types.EnrichmentProcessing)
	time.Sleep(300 * time.Millisecond)

	current, err := store.GetEnrichmentByContact(ctx, "ct:fresh")
	if err != nil {
		t.Fatalf("GetEnrichmentByContact() failed: %v", err)
	}
	if current.Status != types.EnrichmentProcessing {
		t.Errorf("status during claim: got %q, want processing", current.Status)
	}

	gate.release <- struct{}{}
	final := waitForStatus(t, store, "ct:fresh", types.EnrichmentComplete)
	if final.LastError != "" {
		t.Errorf("LastError: got %q, want empty", final.LastError)
	}
	for _, s := range recd.statuses("ct:fresh") {
		if s == types.EnrichmentFailed {
			t.Error("live job reported as failed during recovery")
		}
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	bad := DefaultConfig()
	bad.NumWorkers = 0
	if err := bad.Validate(); err == nil {
		t.Error("zero workers: got nil error")
	}

	bad = DefaultConfig()
	bad.QueueSize = 0
	if err := bad.Validate(); err == nil {
		t.Error("zero queue: got nil error")
	}
}

func TestNewIDFormat(t *testing.T) {
	id := NewID("ct")
	if len(id) < 4 || id[:3] != "ct:" {
		t.Errorf("NewID: got %q", id)
	}
	if NewID("ct") == NewID("ct") {
		t.Error("NewID not unique")
	}
}
