package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ekkohq/ekko/internal/storage"
	"github.com/ekkohq/ekko/internal/storage/sqlite"
	"github.com/ekkohq/ekko/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err, "failed to create test store")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// mockScheduler implements EnrichmentScheduler for handler tests.
type mockScheduler struct {
	mu         sync.Mutex
	opened     []string
	dropped    []string
	refreshed  []string
	refreshRes *types.Enrichment
	refreshErr error
}

func (m *mockScheduler) OpenForContact(ctx context.Context, contact *types.Contact) (*types.Enrichment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = append(m.opened, contact.ID)
	return &types.Enrichment{ID: "en:test", ContactID: contact.ID, Status: types.EnrichmentPending}, nil
}

func (m *mockScheduler) RequestRefresh(ctx context.Context, contactID string) (*types.Enrichment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshed = append(m.refreshed, contactID)
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	if m.refreshRes != nil {
		return m.refreshRes, nil
	}
	return &types.Enrichment{ID: "en:test", ContactID: contactID, Status: types.EnrichmentPending}, nil
}

func (m *mockScheduler) DropForContact(contactID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, contactID)
}

func (m *mockScheduler) QueueLength() int { return 0 }

// doJSON performs a request with a JSON body against a handler func,
// routing {id} through Go 1.22 path values via a throwaway mux.
func doJSON(t *testing.T, method, path string, body interface{}, register func(mux *http.ServeMux)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	mux := http.NewServeMux()
	register(mux)
	mux.ServeHTTP(w, req)
	return w
}

func TestCreateContact(t *testing.T) {
	store := newTestStore(t)
	sched := &mockScheduler{}
	h := NewContactHandlers(store, sched)

	w := doJSON(t, http.MethodPost, "/api/contacts", CreateContactRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Company:   "Analytical Engines",
		Tags:      []string{"vip", "vip", "math"},
	}, func(mux *http.ServeMux) {
		mux.HandleFunc("/api/contacts", h.CreateContact)
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var contact types.Contact
	require.NoError(t, json.NewDecoder(w.Body).Decode(&contact))
	assert.NotEmpty(t, contact.ID)
	assert.NotEmpty(t, contact.AvatarColor, "avatar color must default")
	assert.Equal(t, []string{"math", "vip"}, contact.Tags, "tags must be deduped")

	sched.mu.Lock()
	defer sched.mu.Unlock()
	assert.Equal(t, []string{contact.ID}, sched.opened, "enrichment must open on create")
}

func TestCreateContactValidation(t *testing.T) {
	store := newTestStore(t)
	h := NewContactHandlers(store, nil)

	w := doJSON(t, http.MethodPost, "/api/contacts", CreateContactRequest{FirstName: "Ada"},
		func(mux *http.ServeMux) { mux.HandleFunc("/api/contacts", h.CreateContact) })

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetContactNotFound(t *testing.T) {
	store := newTestStore(t)
	h := NewContactHandlers(store, nil)

	w := doJSON(t, http.MethodGet, "/api/contacts/ct:missing", nil,
		func(mux *http.ServeMux) { mux.HandleFunc("/api/contacts/{id}", h.GetContact) })

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateContactPartial(t *testing.T) {
	store := newTestStore(t)
	h := NewContactHandlers(store, nil)

	w := doJSON(t, http.MethodPost, "/api/contacts", CreateContactRequest{FirstName: "Ada", LastName: "Lovelace"},
		func(mux *http.ServeMux) { mux.HandleFunc("/api/contacts", h.CreateContact) })
	require.Equal(t, http.StatusCreated, w.Code)
	var created types.Contact
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	company := "Babbage & Co"
	w = doJSON(t, http.MethodPatch, "/api/contacts/"+created.ID, UpdateContactRequest{Company: &company},
		func(mux *http.ServeMux) { mux.HandleFunc("/api/contacts/{id}", h.UpdateContact) })
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated types.Contact
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	assert.Equal(t, "Babbage & Co", updated.Company)
	assert.Equal(t, "Ada", updated.FirstName, "untouched fields must survive")
}

func TestDeleteContactDropsQueuedWork(t *testing.T) {
	store := newTestStore(t)
	sched := &mockScheduler{}
	h := NewContactHandlers(store, sched)

	w := doJSON(t, http.MethodPost, "/api/contacts", CreateContactRequest{FirstName: "Ada", LastName: "Lovelace"},
		func(mux *http.ServeMux) { mux.HandleFunc("/api/contacts", h.CreateContact) })
	require.Equal(t, http.StatusCreated, w.Code)
	var created types.Contact
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	w = doJSON(t, http.MethodDelete, "/api/contacts/"+created.ID, nil,
		func(mux *http.ServeMux) { mux.HandleFunc("/api/contacts/{id}", h.DeleteContact) })
	assert.Equal(t, http.StatusNoContent, w.Code)

	sched.mu.Lock()
	defer sched.mu.Unlock()
	assert.Equal(t, []string{created.ID}, sched.dropped)
}

func TestListContactsSearch(t *testing.T) {
	store := newTestStore(t)
	h := NewContactHandlers(store, nil)

	for _, req := range []CreateContactRequest{
		{FirstName: "Ada", LastName: "Lovelace", Company: "Analytical Engines"},
		{FirstName: "Grace", LastName: "Hopper", Company: "US Navy"},
	} {
		w := doJSON(t, http.MethodPost, "/api/contacts", req,
			func(mux *http.ServeMux) { mux.HandleFunc("/api/contacts", h.CreateContact) })
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, http.MethodGet, "/api/contacts?q=navy", nil,
		func(mux *http.ServeMux) { mux.HandleFunc("/api/contacts", h.ListContacts) })
	require.Equal(t, http.StatusOK, w.Code)

	var result storage.PaginatedResult[types.Contact]
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Grace", result.Items[0].FirstName)
}

func TestListContactsSearchSpansStoragePages(t *testing.T) {
	store := newTestStore(t)
	h := NewContactHandlers(store, nil)

	now := time.Now().UTC()
	for i := 0; i < 510; i++ {
		require.NoError(t, store.CreateContact(context.Background(), &types.Contact{
			ID:        fmt.Sprintf("ct:span-%03d", i),
			FirstName: "Ada",
			LastName:  fmt.Sprintf("Number %d", i),
			CreatedAt: now,
			UpdatedAt: now,
		}))
	}

	w := doJSON(t, http.MethodGet, "/api/contacts?q=ada", nil,
		func(mux *http.ServeMux) { mux.HandleFunc("/api/contacts", h.ListContacts) })
	require.Equal(t, http.StatusOK, w.Code)

	var result storage.PaginatedResult[types.Contact]
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, 510, result.Total)
	assert.Len(t, result.Items, 510)
}
