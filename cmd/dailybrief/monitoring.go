package main

import (
	"encoding/json"
	"net/http"

	"github.com/deusflow/dailybrief/internal/logger"
	"github.com/deusflow/dailybrief/internal/metrics"
)

func startMonitoringServer(port string) {
	if port == "" {
		port = "8080"
	}

	logger.Info("Starting monitoring server", "port", port)
	if err := http.ListenAndServe(":"+port, monitoringMux(metrics.Global)); err != nil {
		logger.Error("Monitoring server error", "err", err)
	}
}

func monitoringMux(m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler(m))
	mux.HandleFunc("/metrics", metricsHandler(m))
	return mux
}

func healthHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := m.GetStats()

		status := "ok"
		code := http.StatusOK
		if !m.Healthy() {
			status = "error"
			code = http.StatusServiceUnavailable
		}

		response := map[string]interface{}{
			"status":      status,
			"last_run":    stats["last_run_time"],
			"last_run_id": stats["last_run_id"],
			"last_error":  stats["last_error"],
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(response)
	}
}

func metricsHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m.GetStats())
	}
}
