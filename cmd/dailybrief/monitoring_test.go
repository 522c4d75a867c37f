package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deusflow/dailybrief/internal/metrics"
)

func TestHealthHandler(t *testing.T) {
	m := metrics.New()
	srv := httptest.NewServer(monitoringMux(m))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 when healthy, got %d", resp.StatusCode)
	}

	m.SetError("snapshot write failed")
	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 after error, got %d", resp.StatusCode)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "error" || body["last_error"] != "snapshot write failed" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestMetricsHandler(t *testing.T) {
	m := metrics.New()
	m.AddCandidatesFetched(7)
	srv := httptest.NewServer(monitoringMux(m))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var stats map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats["candidates_fetched"] != float64(7) {
		t.Errorf("unexpected stats: %v", stats)
	}
}
