package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCountersConcurrent(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncrementDuplicatesFiltered()
			m.AddCandidatesFetched(3)
			m.IncrementSummariesFallback()
		}()
	}
	wg.Wait()

	stats := m.GetStats()
	if stats["duplicates_filtered"] != int64(20) || stats["candidates_fetched"] != int64(60) || stats["summaries_fallback"] != int64(20) {
		t.Errorf("unexpected stats: %v", stats)
	}
}

func TestHealthTransitions(t *testing.T) {
	m := New()
	if !m.Healthy() {
		t.Fatal("new metrics should be healthy")
	}
	m.SetError("disk full")
	if m.Healthy() {
		t.Error("expected unhealthy after error")
	}
	m.SetLastRun("run-1", 12)
	if !m.Healthy() {
		t.Error("expected healthy after successful run")
	}
	stats := m.GetStats()
	if stats["last_run_id"] != "run-1" || stats["items_published"] != int64(12) || stats["last_error"] != "disk full" {
		t.Errorf("unexpected stats: %v", stats)
	}
}

func TestRecordProcessingTime(t *testing.T) {
	m := New()
	m.RecordProcessingTime(2 * time.Second)
	m.RecordProcessingTime(4 * time.Second)
	if m.AverageProcessingTime != 3*time.Second || m.LastProcessingTime != 4*time.Second {
		t.Errorf("unexpected timings: avg=%v last=%v", m.AverageProcessingTime, m.LastProcessingTime)
	}
}
