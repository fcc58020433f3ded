// Package request provides middleware that stamps correlation and actor
// identity onto the request context.
package request

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	id "marketgate/pkg/domain"
	"marketgate/pkg/requestcontext"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderActorID   = "X-Actor-ID"

	maxHeaderValueLength = 128
)

// RequestID propagates an inbound X-Request-ID or mints a new one, and echoes
// it on the response so callers can correlate audit rows with their request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := sanitize(r.Header.Get(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Actor copies the upstream-authenticated actor identity into the context.
// Authentication itself happens in front of this service.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if actor := sanitize(r.Header.Get(HeaderActorID)); actor != "" {
			ctx = requestcontext.WithActor(ctx, id.ActorID(actor))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sanitize(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || len(v) > maxHeaderValueLength || !utf8.ValidString(v) {
		return ""
	}
	for _, r := range v {
		if r < 0x20 || r == 0x7f {
			return ""
		}
	}
	return v
}
