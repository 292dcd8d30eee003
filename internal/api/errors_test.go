package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/johnwards/devicetree/internal/api"
)

func TestNewNotFoundError(t *testing.T) {
	err := api.NewNotFoundError("object not found", "abc-123")

	if err.Status != "error" {
		t.Errorf("Status = %q, want %q", err.Status, "error")
	}
	if err.Category != api.CategoryObjectNotFound {
		t.Errorf("Category = %q, want %q", err.Category, api.CategoryObjectNotFound)
	}
	if err.CorrelationID != "abc-123" {
		t.Errorf("CorrelationID = %q, want %q", err.CorrelationID, "abc-123")
	}
	if err.Message != "object not found" {
		t.Errorf("Message = %q, want %q", err.Message, "object not found")
	}
}

func TestNewValidationError(t *testing.T) {
	details := []api.ErrorDetail{
		{Message: "field is required", Code: "REQUIRED"},
	}
	err := api.NewValidationError("invalid input", "def-456", details)

	if err.Category != api.CategoryValidationError {
		t.Errorf("Category = %q, want %q", err.Category, api.CategoryValidationError)
	}
	if len(err.Errors) != 1 {
		t.Fatalf("Errors length = %d, want 1", len(err.Errors))
	}
	if err.Errors[0].Code != "REQUIRED" {
		t.Errorf("Errors[0].Code = %q, want %q", err.Errors[0].Code, "REQUIRED")
	}
}

func TestNewConflictError(t *testing.T) {
	err := api.NewConflictError("already exists", "ghi-789")

	if err.Category != api.CategoryConflict {
		t.Errorf("Category = %q, want %q", err.Category, api.CategoryConflict)
	}
}

func TestWriteErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	apiErr := api.NewNotFoundError("not found", "test-id")

	api.WriteError(rec, http.StatusNotFound, apiErr)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusNotFound)
	}

	ct := rec.Header().Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var result api.Error
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if result.CorrelationID != "test-id" {
		t.Errorf("correlationId = %q, want %q", result.CorrelationID, "test-id")
	}
}

func TestErrorCategories(t *testing.T) {
	cases := map[string]*api.Error{
		api.CategoryBusy:     api.NewBusyError("loading", "id"),
		api.CategoryUpstream: api.NewUpstreamError("platform down", "id"),
		api.CategoryInternal: api.NewInternalError("id"),
	}
	for want, err := range cases {
		if err.Category != want {
			t.Errorf("Category = %q, want %q", err.Category, want)
		}
		if err.Status != "error" {
			t.Errorf("Status = %q, want error", err.Status)
		}
	}
}

func TestValidate(t *testing.T) {
	type input struct {
		Name string `validate:"required"`
		Kind string `validate:"oneof=a b"`
	}

	if details := api.Validate(input{Name: "x", Kind: "a"}); details != nil {
		t.Fatalf("expected no details, got %v", details)
	}

	details := api.Validate(input{Kind: "c"})
	if len(details) != 2 {
		t.Fatalf("details = %v, want 2", details)
	}
	if details[0].Code != "INVALID_REQUIRED" || details[0].In != "Name" {
		t.Errorf("details[0] = %+v", details[0])
	}
	if details[1].Code != "INVALID_ONEOF" {
		t.Errorf("details[1] = %+v", details[1])
	}
}
