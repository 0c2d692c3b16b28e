// Package routes serves read-only JSON views of the job record stores.
package routes

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"vidframe/logger"
)

// NewMux registers every status route on a fresh mux.
func NewMux(pending PendingStore) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler(pending))
	mux.HandleFunc("/version", VersionHandler)
	mux.HandleFunc("/status", JobStatusHandler(pending))
	mux.HandleFunc("/success", SuccessQueryHandler)
	mux.HandleFunc("/success/list", SuccessListHandler)
	mux.HandleFunc("/failures", FailureQueryHandler)
	mux.HandleFunc("/failures/list", FailureListHandler)
	return mux
}

// Serve listens on addr and serves the status routes until ctx ends.
// The stores must stay open for as long as Serve runs; pebble allows one
// process per store, so a command that is writing records serves them itself.
func Serve(ctx context.Context, addr string, pending PendingStore) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return ServeListener(ctx, ln, pending)
}

// ServeListener is Serve on an existing listener.
func ServeListener(ctx context.Context, ln net.Listener, pending PendingStore) error {
	srv := &http.Server{
		Handler:           NewMux(pending),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown failed: %v", err)
		}
	}()

	logger.Infof("Status server listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	<-done
	logger.Info("Status server stopped")
	return nil
}
