package etl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/trackpulse/trackpulse/internal/config"
)

func TestClientFetchEvents(t *testing.T) {
	var gotPath, gotAuth, gotTypes string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotTypes = r.URL.Query().Get("event_types")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"intensity":"high"},{"intensity":"low"}]`))
	}))
	defer server.Close()

	client, err := NewClient(config.ETLConfig{BaseURL: server.URL, APIToken: "secret-token"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	records, raw, err := client.FetchEvents(context.Background(), 101, 9)
	if err != nil {
		t.Fatalf("FetchEvents() error = %v", err)
	}
	if gotPath != "/activities/101/athletes/9/events" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotTypes != defaultEventTypes {
		t.Fatalf("event_types = %q", gotTypes)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if len(raw) == 0 {
		t.Fatal("raw body is empty")
	}
}

func TestClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	client, err := NewClient(config.ETLConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, _, err := client.FetchActivities(context.Background()); err == nil {
		t.Fatal("FetchActivities() accepted a 403 response")
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(config.ETLConfig{}); err == nil {
		t.Fatal("NewClient() accepted empty base url")
	}
}
