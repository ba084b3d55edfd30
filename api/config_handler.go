// Package api — configuration inspection endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/hylle9/ai-stock-analytics/internal/config"
)

// configMu serialises runtime config updates.
var configMu sync.Mutex

// handleGetConfig returns the current (running) configuration.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configMu.Lock()
	defer configMu.Unlock()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.cfg,
	})
}

// handleUpdateConfig merges the provided partial configuration into the
// running config. Only tuning knobs that take effect per request are
// merged; structural settings (data directory, API binding) require a
// restart and are ignored here. The merged config must still validate.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var incoming config.Config
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	configMu.Lock()
	defer configMu.Unlock()

	merged := *s.cfg
	mergeConfig(&merged, &incoming)
	if err := merged.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	*s.cfg = merged
	s.applyScoring()

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.cfg,
	})
}

// mergeConfig copies non-zero/non-empty values from src into dst.
func mergeConfig(dst, src *config.Config) {
	// Scoring
	if src.Scoring.Profile != "" {
		dst.Scoring.Profile = src.Scoring.Profile
	}
	if src.Scoring.TrendWeight != 0 {
		dst.Scoring.TrendWeight = src.Scoring.TrendWeight
	}
	if src.Scoring.VolatilityWeight != 0 {
		dst.Scoring.VolatilityWeight = src.Scoring.VolatilityWeight
	}
	if src.Scoring.RetailWeight != 0 {
		dst.Scoring.RetailWeight = src.Scoring.RetailWeight
	}
	if src.Scoring.SentimentWeight != 0 {
		dst.Scoring.SentimentWeight = src.Scoring.SentimentWeight
	}
	if src.Scoring.AttentionWeight != 0 {
		dst.Scoring.AttentionWeight = src.Scoring.AttentionWeight
	}
	if src.Scoring.MarketTicker != "" {
		dst.Scoring.MarketTicker = src.Scoring.MarketTicker
	}

	// Simulation
	if src.Simulation.ConfirmBars != 0 {
		dst.Simulation.ConfirmBars = src.Simulation.ConfirmBars
	}
	if src.Simulation.ReentryThreshold != 0 {
		dst.Simulation.ReentryThreshold = src.Simulation.ReentryThreshold
	}
	if src.Simulation.ReentryWindow != 0 {
		dst.Simulation.ReentryWindow = src.Simulation.ReentryWindow
	}

	// Risk
	if src.Risk.Confidence != 0 {
		dst.Risk.Confidence = src.Risk.Confidence
	}
	if src.Risk.MinSamples != 0 {
		dst.Risk.MinSamples = src.Risk.MinSamples
	}
}
