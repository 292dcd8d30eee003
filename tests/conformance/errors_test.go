package conformance_test

import (
	"net/http"
	"testing"
)

func TestErrorUnknownRoute(t *testing.T) {
	resp := doRequest(t, http.MethodGet, "/api/v1/nowhere", nil)
	mustStatus(t, resp, http.StatusNotFound)
	assertAPIError(t, readObject(t, resp), "OBJECT_NOT_FOUND")
}

func TestErrorMissingToken(t *testing.T) {
	resp, err := http.Get(serverURL + "/api/v1/entities/assets")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	mustStatus(t, resp, http.StatusUnauthorized)
	assertAPIError(t, readObject(t, resp), "")
}

func TestErrorUnknownEntityType(t *testing.T) {
	resp := doRequest(t, http.MethodGet, "/api/v1/entities/customers", nil)
	mustStatus(t, resp, http.StatusBadRequest)
	assertAPIError(t, readObject(t, resp), "VALIDATION_ERROR")
}

func TestErrorCreateEntityWithEmptyBody(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/v1/entities/assets", map[string]any{})
	mustStatus(t, resp, http.StatusBadRequest)
	assertAPIError(t, readObject(t, resp), "VALIDATION_ERROR")
}

func TestErrorUnknownTree(t *testing.T) {
	resp := doRequest(t, http.MethodGet, "/api/v1/trees/not-a-tree", nil)
	mustStatus(t, resp, http.StatusNotFound)
	assertAPIError(t, readObject(t, resp), "OBJECT_NOT_FOUND")
}

func TestErrorResponsesCarryCorrelationID(t *testing.T) {
	resp := doRequest(t, http.MethodGet, "/api/v1/entities/assets/missing", nil)
	mustStatus(t, resp, http.StatusNotFound)
	if resp.Header.Get("X-Correlation-Id") == "" {
		t.Error("expected X-Correlation-Id header")
	}
	body := readObject(t, resp)
	assertFieldPresent(t, body, "correlationId")
}
