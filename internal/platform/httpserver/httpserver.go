// Package httpserver builds the API server the profile and reference-data
// routers mount onto.
package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server. The write timeout sits above the 30s request
// timeout in the handler chain so slow profile writes are cancelled by the
// middleware, with a proper error body, before the server cuts the
// connection.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
