package conformance_test

import (
	"net/http"
	"testing"
)

type entityBody struct {
	ID struct {
		ID         string `json:"id"`
		EntityType string `json:"entityType"`
	} `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	CreatedAt string `json:"createdAt"`
}

func TestEntityLifecycle(t *testing.T) {
	resetServer(t)

	resp := doRequest(t, http.MethodPost, "/api/v1/entities/devices", map[string]string{
		"name": "Hall sensor", "type": "motion",
	})
	mustStatus(t, resp, http.StatusCreated)
	var created entityBody
	readJSON(t, resp, &created)
	if created.ID.ID == "" || created.ID.EntityType != "DEVICE" {
		t.Fatalf("unexpected id %+v", created.ID)
	}
	if created.CreatedAt == "" {
		t.Error("expected createdAt to be set")
	}

	resp = doRequest(t, http.MethodGet, "/api/v1/entities/devices/"+created.ID.ID, nil)
	mustStatus(t, resp, http.StatusOK)
	var got entityBody
	readJSON(t, resp, &got)
	if got.Name != "Hall sensor" || got.Type != "motion" {
		t.Errorf("got %+v", got)
	}

	resp = doRequest(t, http.MethodDelete, "/api/v1/entities/devices/"+created.ID.ID, nil)
	mustStatus(t, resp, http.StatusNoContent)
	_ = resp.Body.Close()

	resp = doRequest(t, http.MethodGet, "/api/v1/entities/devices/"+created.ID.ID, nil)
	mustStatus(t, resp, http.StatusNotFound)
	assertAPIError(t, readObject(t, resp), "OBJECT_NOT_FOUND")
}

func TestEntityBatchFetchKeepsRequestOrder(t *testing.T) {
	resetServer(t)

	resp := doRequest(t, http.MethodGet, "/api/v1/entities/assets?ids=room-living,missing,home-cabin", nil)
	mustStatus(t, resp, http.StatusOK)
	var page struct {
		Results []entityBody `json:"results"`
	}
	readJSON(t, resp, &page)
	if len(page.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(page.Results))
	}
	if page.Results[0].ID.ID != "room-living" || page.Results[1].ID.ID != "home-cabin" {
		t.Errorf("order = %s, %s", page.Results[0].ID.ID, page.Results[1].ID.ID)
	}
}

func TestEntityListByProfile(t *testing.T) {
	resetServer(t)

	resp := doRequest(t, http.MethodGet, "/api/v1/entities/assets?profile=HOME&limit=2", nil)
	mustStatus(t, resp, http.StatusOK)
	var page struct {
		Results []entityBody `json:"results"`
		Paging  *struct {
			Next struct {
				After string `json:"after"`
			} `json:"next"`
		} `json:"paging"`
	}
	readJSON(t, resp, &page)
	if len(page.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(page.Results))
	}
	if page.Paging == nil || page.Paging.Next.After == "" {
		t.Fatal("expected a next page cursor")
	}

	resp = doRequest(t, http.MethodGet, "/api/v1/entities/assets?profile=HOME&limit=2&after="+page.Paging.Next.After, nil)
	mustStatus(t, resp, http.StatusOK)
	page.Paging = nil
	readJSON(t, resp, &page)
	if len(page.Results) != 1 {
		t.Errorf("second page has %d results, want 1", len(page.Results))
	}
	if page.Paging != nil {
		t.Error("expected no further pages")
	}
}

func TestEntityAttributes(t *testing.T) {
	resetServer(t)
	path := "/api/v1/entities/devices/dev-lamp-1/attributes/SHARED_SCOPE"

	resp := doRequest(t, http.MethodPost, path, map[string]any{"brightness": 70, "color": "warm"})
	mustStatus(t, resp, http.StatusOK)
	_ = resp.Body.Close()

	resp = doRequest(t, http.MethodGet, path, nil)
	mustStatus(t, resp, http.StatusOK)
	var attrs []struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	}
	readJSON(t, resp, &attrs)
	keys := map[string]any{}
	for _, a := range attrs {
		keys[a.Key] = a.Value
	}
	if keys["color"] != "warm" {
		t.Errorf("color = %v", keys["color"])
	}
	if keys["brightness"] != float64(70) {
		t.Errorf("brightness = %v", keys["brightness"])
	}

	resp = doRequest(t, http.MethodDelete, path+"?keys=color", nil)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete keys status = %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = doRequest(t, http.MethodGet, path, nil)
	mustStatus(t, resp, http.StatusOK)
	readJSON(t, resp, &attrs)
	for _, a := range attrs {
		if a.Key == "color" {
			t.Error("color should have been deleted")
		}
	}

	resp = doRequest(t, http.MethodGet, "/api/v1/entities/devices/dev-lamp-1/attributes/NOT_A_SCOPE", nil)
	mustStatus(t, resp, http.StatusBadRequest)
	assertAPIError(t, readObject(t, resp), "VALIDATION_ERROR")
}
