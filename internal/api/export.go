package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

type exportRequest struct {
	LookbackDays int `json:"lookback_days"`
}

func handleExportEfforts(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Exporter == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EXPORT_NOT_CONFIGURED", "export dependencies are not configured", false, nil)
		return
	}

	var request exportRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid export request body", false, map[string]any{"details": err.Error()})
		return
	}
	if request.LookbackDays < 0 || request.LookbackDays > 365 {
		writeError(r.Context(), w, http.StatusBadRequest, "DAYS_OUT_OF_RANGE", "lookback_days must be between 1 and 365", false, nil)
		return
	}

	result, err := deps.Exporter.ExportEfforts(r.Context(), request.LookbackDays)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", "efforts export failed", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}
