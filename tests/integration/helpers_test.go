package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"testing"
	"time"
)

// These tests exercise a running auth service end to end. They skip
// themselves when nothing listens on the service port, so `go test ./...`
// stays green without Docker.

// apiClient issues JSON requests against the auth service and decodes the
// envelope responses.
type apiClient struct {
	t    *testing.T
	base string
	hc   *http.Client
}

// newAPIClient probes the liveness endpoint and skips the test when the
// service is not running.
func newAPIClient(t *testing.T, port int) *apiClient {
	t.Helper()

	c := &apiClient{
		t:    t,
		base: fmt.Sprintf("http://localhost:%d", port),
		hc:   &http.Client{Timeout: 10 * time.Second},
	}

	probe := &http.Client{Timeout: 2 * time.Second}
	resp, err := probe.Get(c.base + "/health/live")
	if err != nil {
		t.Skipf("auth service on port %d not reachable (is docker compose up?): %v", port, err)
	}
	resp.Body.Close()
	return c
}

// post sends a JSON POST to path. An empty token omits the Authorization header.
func (c *apiClient) post(path string, body any, token string) (int, map[string]any) {
	c.t.Helper()
	return c.do(http.MethodPost, path, body, token)
}

// get sends a GET to path. An empty token omits the Authorization header.
func (c *apiClient) get(path, token string) (int, map[string]any) {
	c.t.Helper()
	return c.do(http.MethodGet, path, nil, token)
}

func (c *apiClient) do(method, path string, body any, token string) (int, map[string]any) {
	c.t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal %s %s body: %v", method, path, err)
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		c.t.Fatalf("build %s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, c.decodeBody(resp.Body)
}

// decodeBody parses a JSON body into a generic map. Empty bodies come back as
// an empty map; non-JSON bodies land under a "raw" key so failures stay
// readable.
func (c *apiClient) decodeBody(body io.Reader) map[string]any {
	c.t.Helper()

	raw, err := io.ReadAll(body)
	if err != nil {
		c.t.Fatalf("read response body: %v", err)
	}
	if len(raw) == 0 {
		return map[string]any{}
	}

	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{"raw": string(raw)}
	}
	return out
}

// uniqueEmail generates an email no earlier test run can collide with.
func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d-%d@test.example.com", prefix, time.Now().UnixNano(), rand.IntN(100000))
}

// field walks a dot-separated path through nested JSON objects, returning nil
// when any segment is missing.
func field(data map[string]any, path string) any {
	var cur any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = m[part]; !ok {
			return nil
		}
	}
	return cur
}

// stringField is like field but fails the test unless the value is a string.
func stringField(t *testing.T, data map[string]any, path string) string {
	t.Helper()
	v := field(data, path)
	s, ok := v.(string)
	if !ok {
		t.Fatalf("expected string at %q, got %T (%v)", path, v, v)
	}
	return s
}

// requireStatus fails the test when the status differs, printing the decoded
// body for context.
func requireStatus(t *testing.T, got, want int, body map[string]any) {
	t.Helper()
	if got != want {
		t.Fatalf("expected status %d, got %d; body: %v", want, got, body)
	}
}
