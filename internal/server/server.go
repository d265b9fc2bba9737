// Package server provides HTTP server initialization and lifecycle management
// for the Ekko REST API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/ekkohq/ekko/internal/config"
	"github.com/ekkohq/ekko/internal/importer"
	"github.com/ekkohq/ekko/internal/storage"
	"github.com/ekkohq/ekko/pkg/types"
	"github.com/ekkohq/ekko/web/handlers"
)

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start initializes and starts the HTTP server.
// Returns the actual address being listened on (useful for testing with port 0)
// and the WebSocketHub for wiring enrichment event broadcasts.
// The scheduler may be nil, in which case enrichment endpoints report the
// feature as unavailable.
func Start(ctx context.Context, cfg *config.Config, store storage.Store, scheduler handlers.EnrichmentScheduler) (string, *handlers.WebSocketHub, error) {
	mux := http.NewServeMux()

	// Create WebSocket hub
	wsHub := handlers.NewWebSocketHub()
	go wsHub.Run()

	// Create rate limiter (10 req/sec, burst of 20)
	rateLimiter := handlers.NewRateLimiter(10.0, 20)

	// Markdown import feeds contacts into the same enrichment pipeline as
	// the API.
	var opener importer.ContactOpener
	if scheduler != nil {
		opener = func(ctx context.Context, contact *types.Contact) {
			if _, err := scheduler.OpenForContact(ctx, contact); err != nil {
				log.Printf("WARNING: failed to open enrichment for imported contact %s: %v", contact.ID, err)
			}
		}
	}
	markdownImporter := importer.NewMarkdownImporter(store, opener)

	contactHandlers := handlers.NewContactHandlers(store, scheduler)
	taskHandlers := handlers.NewTaskHandlers(store)
	noteHandlers := handlers.NewNoteHandlers(store)
	voiceLogHandlers := handlers.NewVoiceLogHandlers(store)
	enrichmentHandlers := handlers.NewEnrichmentHandlers(store, scheduler)
	statsHandler := handlers.NewStatsHandler(store, scheduler)
	importHandlers := handlers.NewImportHandlers(markdownImporter)

	// API routes (require auth in production mode)
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/contacts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			contactHandlers.ListContacts(w, r)
		case http.MethodPost:
			contactHandlers.CreateContact(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/contacts/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			contactHandlers.GetContact(w, r)
		case http.MethodPatch:
			contactHandlers.UpdateContact(w, r)
		case http.MethodDelete:
			contactHandlers.DeleteContact(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/contacts/{id}/enrichment", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			enrichmentHandlers.GetEnrichment(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/contacts/{id}/enrichment/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			enrichmentHandlers.RefreshEnrichment(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	apiMux.HandleFunc("/api/tasks", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			taskHandlers.ListTasks(w, r)
		case http.MethodPost:
			taskHandlers.CreateTask(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			taskHandlers.GetTask(w, r)
		case http.MethodPatch:
			taskHandlers.UpdateTask(w, r)
		case http.MethodDelete:
			taskHandlers.DeleteTask(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/tasks/{id}/complete", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			taskHandlers.ToggleComplete(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	apiMux.HandleFunc("/api/notes", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			noteHandlers.ListNotes(w, r)
		case http.MethodPost:
			noteHandlers.CreateNote(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/notes/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			noteHandlers.GetNote(w, r)
		case http.MethodPatch:
			noteHandlers.UpdateNote(w, r)
		case http.MethodDelete:
			noteHandlers.DeleteNote(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/notes/{id}/pin", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			noteHandlers.TogglePin(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	apiMux.HandleFunc("/api/voice-logs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			voiceLogHandlers.ListVoiceLogs(w, r)
		case http.MethodPost:
			voiceLogHandlers.AppendVoiceLog(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	apiMux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			statsHandler.GetStats(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Import routes (Markdown with YAML frontmatter)
	apiMux.HandleFunc("/api/import/markdown", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			importHandlers.PostMarkdownImport(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/import/status/{job_id}", importHandlers.GetImportStatus)

	// Health endpoint - no auth required, used by monitoring
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","version":"1.0.0"}`))
	})

	// Wrap API routes with auth middleware
	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg))

	// WebSocket endpoint (no auth required - origin validation handles security)
	mux.Handle("/ws", wsHub)

	// Wrap entire server with rate limiting, then security headers
	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	handler = securityHeadersMiddleware(handler)

	// Create server with security timeouts
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		wsHub.Stop()
		return "", nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		wsHub.Stop()
	}()

	return actualAddr, wsHub, nil
}
