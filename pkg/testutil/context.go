package testutil

import (
	"net/http"
	"time"

	"custodyprofile/pkg/requestcontext"
)

// WithUsername attributes the request to a user, as the auth middleware
// would after validating a token.
func WithUsername(req *http.Request, username string) *http.Request {
	return req.WithContext(requestcontext.WithUsername(req.Context(), username))
}

// WithRequestTime pins the request's "now" so assertions on timestamps are
// deterministic.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithRequestID sets a correlation ID on the request context.
func WithRequestID(req *http.Request, id string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), id))
}
