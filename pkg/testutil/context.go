package testutil

import (
	"net/http"
	"time"

	id "marketgate/pkg/domain"
	"marketgate/pkg/requestcontext"
)

// WithActor adds an actor identity to the request context.
// This simulates what the request middleware does with X-Actor-ID.
func WithActor(req *http.Request, actor string) *http.Request {
	if actor == "" {
		return req
	}
	return req.WithContext(requestcontext.WithActor(req.Context(), id.ActorID(actor)))
}

// WithRequestID adds a correlation ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
