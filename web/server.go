package web

import (
	"context"
	"net/http"
	"time"
)

// NewHandler builds the control-server routing table. It is separate from
// StartWebServer so tests can mount it on an httptest server.
func NewHandler(controller AppController) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", statusHandler(controller))
	mux.HandleFunc("/api/watchlist", watchlistHandler(controller))
	mux.HandleFunc("/api/history", historyHandler(controller))
	mux.HandleFunc("/webhook/tradingview", webhookHandler(controller))
	mux.HandleFunc("/api/pause", pauseHandler(controller))
	mux.HandleFunc("/api/resume", resumeHandler(controller))
	return mux
}

// StartWebServer starts the control server in a new goroutine and shuts it
// down gracefully when ctx is cancelled.
func StartWebServer(ctx context.Context, controller AppController, addr string) {
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      NewHandler(controller),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		controller.Logger().LogInfo("Control server listening on %s", addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			controller.Logger().LogFatal("Control server failed: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		controller.Logger().LogInfo("Shutting down control server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			controller.Logger().LogError("Control server graceful shutdown failed: %v", err)
		}
	}()
}
