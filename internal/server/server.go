// Package server provides HTTP server initialization and lifecycle
// management for the TableTalk web API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/tabletalk/tabletalk/internal/chat"
	"github.com/tabletalk/tabletalk/internal/config"
	"github.com/tabletalk/tabletalk/internal/storage"
	"github.com/tabletalk/tabletalk/web/handlers"
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

// Start initializes and starts the HTTP server hosting the chat engine.
// It returns the actual address being listened on (useful for testing
// with port 0) and the WebSocketHub carrying live turn events. The
// server shuts down gracefully when ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, engine *chat.Engine, executor storage.QueryExecutor) (string, *handlers.WebSocketHub) {
	mux := http.NewServeMux()

	wsHub := handlers.NewWebSocketHub(cfg.Server.AllowedOrigins)
	go wsHub.Run()

	// 10 req/sec sustained, burst of 20
	rateLimiter := handlers.NewRateLimiter(10.0, 20)

	sessions := handlers.NewSessionManager(cfg.Chat.MaxTurns)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := sessions.Sweep(); n > 0 {
					log.Printf("server: evicted %d idle session(s)", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	apiHandlers := handlers.NewAPIHandlers(engine, executor, sessions, wsHub)

	// API routes (require auth in production mode)
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/query", apiHandlers.HandleQuery)
	apiMux.HandleFunc("GET /api/context", apiHandlers.HandleContext)
	apiMux.HandleFunc("GET /api/suggest", apiHandlers.HandleSuggest)
	apiMux.HandleFunc("GET /api/schema", apiHandlers.HandleSchema)
	apiMux.HandleFunc("GET /api/sample/{table}", apiHandlers.HandleSample)
	apiMux.HandleFunc("GET /api/export/{format}", apiHandlers.HandleExport)

	// Health endpoint stays unauthenticated for monitoring probes.
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","version":"1.0.0"}`))
	})

	// Wrap API routes with auth middleware
	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg))

	// WebSocket endpoint (no auth required - origin validation handles security)
	mux.Handle("/ws", wsHub)

	// Wrap entire server with CORS, then rate limiting, then security headers
	handler := handlers.CORSMiddleware(mux, cfg.Server.AllowedOrigins)
	handler = handlers.RateLimitMiddleware(handler, rateLimiter)
	handler = securityHeadersMiddleware(handler)

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
		log.Fatalf("Failed to listen on %s: %v", addr, err)
	}

	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		wsHub.Stop()
	}()

	return actualAddr, wsHub
}
