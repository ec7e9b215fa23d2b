package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewKeepsWriteTimeoutAboveHandlerTimeout(t *testing.T) {
	srv := New(":8080", http.NewServeMux())

	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	// Handlers time requests out at 30s; the server must not cut the
	// connection before the middleware writes its error body.
	assert.Greater(t, srv.WriteTimeout, 30*time.Second)
}
