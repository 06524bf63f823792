package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beanops/warehouse-sync-go/pkg/analytics"
	"github.com/beanops/warehouse-sync-go/pkg/syncer"
)

// newRouter exposes the orchestrator's read surface to dashboard
// consumers, plus the Prometheus scrape endpoint and a health probe.
func newRouter(orch *syncer.Orchestrator) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/state", handleState(orch)).Methods(http.MethodGet)
	r.HandleFunc("/api/status", handleStatus(orch)).Methods(http.MethodGet)
	r.HandleFunc("/api/analytics", handleAnalytics(orch)).Methods(http.MethodGet)
	r.HandleFunc("/api/sync", handleForceSync(orch)).Methods(http.MethodPost)

	return r
}

func handleState(orch *syncer.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		state, ok := orch.State()
		if !ok {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no data yet"})
			return
		}
		writeJSON(w, http.StatusOK, struct {
			syncer.SensorState
			Provenance string `json:"provenance"`
		}{state, state.Provenance.String()})
	}
}

// handleStatus reports the sync health the UI uses to surface staleness
// instead of raw errors.
func handleStatus(orch *syncer.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		lastSynced, synced := orch.LastSyncedAt()
		body := map[string]any{
			"provenance":               orch.Provenance().String(),
			"current_interval_seconds": int(orch.Interval() / time.Second),
			"consecutive_errors":       orch.ConsecutiveErrors(),
		}
		if synced {
			body["last_synced_at"] = lastSynced
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func handleAnalytics(orch *syncer.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		state, ok := orch.State()
		if !ok {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no data yet"})
			return
		}

		now := time.Now()
		trends := analytics.AnalyzeTrends(state.History)
		forecasts := analytics.ForecastConditions(state.History, 24, now)
		score := analytics.ScoreConditions(state.Current, now)
		recs := analytics.Recommend(state.Current, forecasts, trends, now)
		daily := analytics.AnalyzeDailyPatterns(state.History)
		weekly := analytics.AnalyzeWeeklyPatterns(state.History)

		writeJSON(w, http.StatusOK, map[string]any{
			"trends":          trends,
			"forecasts":       forecasts,
			"score":           score,
			"recommendations": recs,
			"anomalies":       analytics.DetectAnomalies(state.History),
			"daily_patterns":  daily,
			"weekly_patterns": weekly,
			"insights":        analytics.PatternInsights(daily, weekly),
		})
	}
}

func handleForceSync(orch *syncer.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome := orch.ForceSync(r.Context())
		writeJSON(w, http.StatusOK, struct {
			syncer.SyncOutcome
			Provenance string `json:"provenance"`
		}{outcome, outcome.Provenance.String()})
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
