package api

import (
	"net/http"
	"strconv"
	"strings"
)

func handleDashboardOverview(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Dashboard == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "DASHBOARD_NOT_CONFIGURED", "dashboard dependencies are not configured", false, nil)
		return
	}

	lookbackDays, ok := lookbackFromQuery(w, r)
	if !ok {
		return
	}

	overview, err := deps.Dashboard.Overview(r.Context(), lookbackDays)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "DASHBOARD_FAILED", "failed to load dashboard overview", true, map[string]any{"details": err.Error()})
		return
	}

	intensity, err := deps.Dashboard.IntensityDistribution(r.Context(), lookbackDays)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "DASHBOARD_FAILED", "failed to load intensity distribution", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"overview":  overview,
		"intensity": intensity,
	})
}

// lookbackFromQuery parses the optional days query parameter, bounded to one
// year. A zero value lets the repository apply its default window.
func lookbackFromQuery(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("days"))
	if raw == "" {
		return 0, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > 365 {
		writeError(r.Context(), w, http.StatusBadRequest, "DAYS_OUT_OF_RANGE", "days must be between 1 and 365", false, nil)
		return 0, false
	}
	return days, true
}
