package conformance_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

// doRequest makes an HTTP request to the test server and returns the response.
// The caller is responsible for closing the response body.
func doRequest(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, serverURL+path, bodyReader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer test-token")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// readJSON reads the response body and unmarshals it into v.
func readJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("unmarshal response (status %d): body=%s err=%v", resp.StatusCode, string(b), err)
	}
}

// readObject reads the response body as a JSON object.
func readObject(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	readJSON(t, resp, &m)
	return m
}

// mustStatus asserts the HTTP response has the expected status code.
func mustStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		t.Fatalf("expected status %d, got %d; body=%s", expected, resp.StatusCode, string(b))
	}
}

// resetServer calls POST /_devicetree/reset to return the server to its seeded state.
func resetServer(t *testing.T) {
	t.Helper()
	resp := doRequest(t, http.MethodPost, "/_devicetree/reset", nil)
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("reset server failed: status=%d body=%s", resp.StatusCode, string(b))
	}
}

// assertAPIError checks the error envelope and, if given, its category.
func assertAPIError(t *testing.T, body map[string]any, expectedCategory string) {
	t.Helper()
	assertStringField(t, body, "status", "error")
	assertFieldPresent(t, body, "message")
	assertFieldPresent(t, body, "correlationId")
	if expectedCategory != "" {
		assertStringField(t, body, "category", expectedCategory)
	}
}

// assertFieldPresent checks that a key exists in the map.
func assertFieldPresent(t *testing.T, m map[string]any, key string) {
	t.Helper()
	if _, ok := m[key]; !ok {
		t.Errorf("expected field %q to be present, got keys: %v", key, mapKeys(m))
	}
}

// assertStringField checks that a key exists and has the expected string value.
func assertStringField(t *testing.T, m map[string]any, key, expected string) {
	t.Helper()
	v, ok := m[key]
	if !ok {
		t.Errorf("expected field %q to be present", key)
		return
	}
	s, ok := v.(string)
	if !ok {
		t.Errorf("expected field %q to be string, got %T", key, v)
		return
	}
	if s != expected {
		t.Errorf("field %q: expected %q, got %q", key, expected, s)
	}
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// node mirrors the visible tree node wire shape.
type node struct {
	ID          string `json:"id"`
	EntityType  string `json:"entityType"`
	ProfileType string `json:"profileType"`
	Label       string `json:"label"`
	Level       int    `json:"level"`
	Expandable  bool   `json:"expandable"`
	IsLoading   bool   `json:"isLoading"`
	ParentID    string `json:"parentId"`
}

type treeBody struct {
	ID       string `json:"id"`
	Nodes    []node `json:"nodes"`
	Expanded bool   `json:"expanded"`
}

func nodeIDs(nodes []node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

// openTree opens a tree session over the default root profile.
func openTree(t *testing.T) treeBody {
	t.Helper()
	resp := doRequest(t, http.MethodPost, "/api/v1/trees", map[string]any{})
	mustStatus(t, resp, http.StatusCreated)
	var tb treeBody
	readJSON(t, resp, &tb)
	return tb
}

// treeAction posts to a node action endpoint and returns the new tree body.
func treeAction(t *testing.T, treeID, nodeID, action string) treeBody {
	t.Helper()
	resp := doRequest(t, http.MethodPost, "/api/v1/trees/"+treeID+"/nodes/"+nodeID+"/"+action, nil)
	mustStatus(t, resp, http.StatusOK)
	var tb treeBody
	readJSON(t, resp, &tb)
	return tb
}
