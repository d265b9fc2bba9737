package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ekkohq/ekko/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastEnrichmentUpdate(t *testing.T) {
	hub := NewWebSocketHub()
	go hub.Run()
	defer hub.Stop()

	client := &MockClient{SendChan: make(chan []byte, 8)}
	hub.Register(client)

	hub.BroadcastEnrichmentUpdate("ct:ada", types.EnrichmentComplete)

	select {
	case data := <-client.SendChan:
		var event EnrichmentEvent
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, "enrichment_update", event.Type)
		assert.Equal(t, "ct:ada", event.ContactID)
		assert.Equal(t, types.EnrichmentComplete, event.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("no broadcast received")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewWebSocketHub()
	go hub.Run()
	defer hub.Stop()

	// Zero-capacity channel: the first broadcast cannot be delivered.
	slow := &MockClient{SendChan: make(chan []byte)}
	healthy := &MockClient{SendChan: make(chan []byte, 8)}
	hub.Register(slow)
	hub.Register(healthy)

	hub.BroadcastEnrichmentUpdate("ct:ada", types.EnrichmentProcessing)

	select {
	case <-healthy.SendChan:
	case <-time.After(2 * time.Second):
		t.Fatal("healthy client did not receive broadcast")
	}

	// The slow client's channel is closed on disconnect.
	select {
	case _, open := <-slow.SendChan:
		assert.False(t, open, "slow client channel must be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("slow client was not dropped")
	}
}

func TestHubUnregister(t *testing.T) {
	hub := NewWebSocketHub()
	go hub.Run()
	defer hub.Stop()

	client := &MockClient{SendChan: make(chan []byte, 8)}
	hub.Register(client)
	hub.Unregister(client)

	// After unregistering, broadcasts no longer reach the client and its
	// channel is closed.
	hub.BroadcastEnrichmentUpdate("ct:ada", types.EnrichmentPending)

	select {
	case _, open := <-client.SendChan:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("client channel was not closed on unregister")
	}
}
