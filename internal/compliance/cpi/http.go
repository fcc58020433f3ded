package cpi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPSource reads CPI from a JSON endpoint:
//
//	GET {url}?as_of=2025-09  ->  {"value": 3.1, "as_of": "2025-09"}
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates a source for endpoint. A nil client uses
// http.DefaultClient; the timeout comes from the caller's context.
func NewHTTPSource(endpoint string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{url: endpoint, client: client}
}

type httpReading struct {
	Value *float64 `json:"value"`
	AsOf  string   `json:"as_of"`
}

// CurrentIndex fetches the reading for asOf's month.
func (h *HTTPSource) CurrentIndex(ctx context.Context, asOf time.Time) (Reading, error) {
	u, err := url.Parse(h.url)
	if err != nil {
		return Reading{}, NewSourceError(ErrorInternal, "http", "parse cpi url", err)
	}
	q := u.Query()
	q.Set("as_of", Month(asOf))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Reading{}, NewSourceError(ErrorInternal, "http", "build cpi request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Reading{}, NewSourceError(ErrorTimeout, "http", "cpi request timed out", err)
		}
		return Reading{}, NewSourceError(ErrorOutage, "http", "cpi request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Reading{}, NewSourceError(ErrorOutage, "http", fmt.Sprintf("cpi source returned %s", resp.Status), nil)
	}

	var body httpReading
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if ctx.Err() != nil {
			return Reading{}, NewSourceError(ErrorTimeout, "http", "cpi response timed out", err)
		}
		return Reading{}, NewSourceError(ErrorBadData, "http", "decode cpi response", err)
	}
	if body.Value == nil {
		return Reading{}, NewSourceError(ErrorBadData, "http", "cpi response has no value", nil)
	}

	readingAsOf := asOf.UTC()
	if body.AsOf != "" {
		parsed, err := time.Parse("2006-01", body.AsOf)
		if err != nil {
			return Reading{}, NewSourceError(ErrorBadData, "http", "cpi response has invalid as_of", err)
		}
		readingAsOf = parsed
	}

	r := Reading{Value: *body.Value, Source: SourceLive, AsOf: readingAsOf}
	if err := r.validate(); err != nil {
		return Reading{}, NewSourceError(ErrorBadData, "http", "cpi response out of range", err)
	}
	return r, nil
}
