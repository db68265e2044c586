package httpserver

import (
	"net/http"
	"time"
)

// New builds the dashboard shell's HTTP server. WriteTimeout leaves room for a
// handler that waits on a full backend timeout.
func New(addr string, handler http.Handler, backendTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      backendTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
