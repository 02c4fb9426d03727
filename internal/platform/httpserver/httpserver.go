package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with sane defaults for this project. The write
// timeout leaves room for one upstream lookup at its full timeout.
func New(addr string, handler http.Handler, upstreamTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      upstreamTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
