package cpi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes reading for the requested month", func(t *testing.T) {
		var gotAsOf string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAsOf = r.URL.Query().Get("as_of")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"value": 3.2, "as_of": "2025-08"}`))
		}))
		defer srv.Close()

		r, err := NewHTTPSource(srv.URL, srv.Client()).CurrentIndex(ctx, sept2025)
		require.NoError(t, err)
		assert.Equal(t, "2025-09", gotAsOf)
		assert.Equal(t, 3.2, r.Value)
		assert.Equal(t, SourceLive, r.Source)
		assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), r.AsOf)
	})

	t.Run("non-200 is an outage", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewHTTPSource(srv.URL, srv.Client()).CurrentIndex(ctx, sept2025)
		assert.Equal(t, ErrorOutage, GetCategory(err))
	})

	t.Run("missing value is bad data", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"as_of": "2025-09"}`))
		}))
		defer srv.Close()

		_, err := NewHTTPSource(srv.URL, srv.Client()).CurrentIndex(ctx, sept2025)
		assert.Equal(t, ErrorBadData, GetCategory(err))
	})

	t.Run("slow server is a timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err := NewHTTPSource(srv.URL, srv.Client()).CurrentIndex(short, sept2025)
		assert.Equal(t, ErrorTimeout, GetCategory(err))
	})
}
