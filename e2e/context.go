package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext holds per-scenario HTTP state.
type TestContext struct {
	BaseURL  string
	Client   *http.Client
	ActorID  string
	status   int
	body     []byte
	response map[string]interface{}
	saved    map[string]string
}

// NewTestContext creates a context against baseURL.
func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
		saved:   map[string]string{},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.ActorID = ""
	tc.status = 0
	tc.body = nil
	tc.response = nil
	tc.saved = map[string]string{}
}

func (tc *TestContext) SetActor(actor string) { tc.ActorID = actor }

func (tc *TestContext) POST(path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return tc.do(http.MethodPost, path, bytes.NewReader(payload))
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) do(method, path string, body io.Reader) error {
	req, err := http.NewRequest(method, tc.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.ActorID != "" {
		req.Header.Set("X-Actor-ID", tc.ActorID)
	}
	resp, err := tc.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.status = resp.StatusCode
	tc.body, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.response = nil
	if len(tc.body) > 0 {
		var parsed map[string]interface{}
		if err := json.Unmarshal(tc.body, &parsed); err == nil {
			tc.response = parsed
		}
	}
	return nil
}

func (tc *TestContext) StatusCode() int { return tc.status }

// GetResponseField resolves a dotted path such as "result.decision.passed".
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	if tc.response == nil {
		return nil, fmt.Errorf("response is not a JSON object: %s", string(tc.body))
	}
	var cur interface{} = tc.response
	for _, part := range strings.Split(field, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		cur, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found in response", field)
		}
	}
	return cur, nil
}

func (tc *TestContext) ResponseContains(field string) bool {
	_, err := tc.GetResponseField(field)
	return err == nil
}

func (tc *TestContext) Save(key, value string) { tc.saved[key] = value }

func (tc *TestContext) Saved(key string) string { return tc.saved[key] }
