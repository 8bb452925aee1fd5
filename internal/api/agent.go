package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/trackpulse/trackpulse/internal/agent"
)

// Question budgets mirror the request contract: execution time in seconds
// between 5 and 120, row limits between 1 and 5000. Zero means "use the
// configured default".
const (
	minExecutionSeconds = 5
	maxExecutionSeconds = 120
	minRows             = 1
	maxRows             = 5000

	quickSessionID        = "quick"
	quickExecutionSeconds = 15
	quickMaxRows          = 100
)

type askRequest struct {
	Question           string `json:"question"`
	SessionID          string `json:"session_id"`
	IncludeExplanation *bool  `json:"include_explanation"`
	MaxExecutionTime   int    `json:"max_execution_time"`
	MaxRows            int    `json:"max_rows"`
}

type quickRequest struct {
	Question string `json:"question"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AGENT_NOT_CONFIGURED", "agent dependencies are not configured", false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}

	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}
	if request.MaxExecutionTime != 0 && (request.MaxExecutionTime < minExecutionSeconds || request.MaxExecutionTime > maxExecutionSeconds) {
		writeError(r.Context(), w, http.StatusBadRequest, "EXECUTION_TIME_OUT_OF_RANGE",
			"max_execution_time must be between 5 and 120 seconds", false, nil)
		return
	}
	if request.MaxRows != 0 && (request.MaxRows < minRows || request.MaxRows > maxRows) {
		writeError(r.Context(), w, http.StatusBadRequest, "MAX_ROWS_OUT_OF_RANGE",
			"max_rows must be between 1 and 5000", false, nil)
		return
	}

	includeExplanation := true
	if request.IncludeExplanation != nil {
		includeExplanation = *request.IncludeExplanation
	}

	response := deps.Agent.ProcessQuestion(r.Context(), agent.Request{
		Question:           strings.TrimSpace(request.Question),
		SessionID:          request.SessionID,
		IncludeExplanation: includeExplanation,
		MaxExecutionTime:   time.Duration(request.MaxExecutionTime) * time.Second,
		MaxRows:            request.MaxRows,
	})
	writeJSON(w, http.StatusOK, response)
}

// handleQuick answers a question under a tight budget with no session context
// and no explanation, for dashboard widgets and smoke tests.
func handleQuick(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AGENT_NOT_CONFIGURED", "agent dependencies are not configured", false, nil)
		return
	}

	var request quickRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid quick request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	response := deps.Agent.ProcessQuestion(r.Context(), agent.Request{
		Question:           strings.TrimSpace(request.Question),
		SessionID:          quickSessionID,
		IncludeExplanation: false,
		MaxExecutionTime:   quickExecutionSeconds * time.Second,
		MaxRows:            quickMaxRows,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   response.Success,
		"question":  response.Question,
		"sql_query": sqlQueryOf(response),
		"row_count": rowCountOf(response),
		"summary":   response.Summary,
		"error":     response.Error,
	})
}

func handleSessionHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AGENT_NOT_CONFIGURED", "agent dependencies are not configured", false, nil)
		return
	}

	sessionID := strings.TrimSpace(r.PathValue("session"))
	if sessionID == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SESSION_REQUIRED", "session id is required", false, nil)
		return
	}

	history, err := deps.Agent.SessionHistory(r.Context(), sessionID)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SESSION_LOOKUP_FAILED", "failed to load session history", true, map[string]any{"details": err.Error()})
		return
	}
	if history == nil {
		writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found", false, map[string]any{"session_id": sessionID})
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func handleAgentStats(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AGENT_NOT_CONFIGURED", "agent dependencies are not configured", false, nil)
		return
	}

	stats, err := deps.Agent.SystemStats(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "STATS_FAILED", "failed to load system stats", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func sqlQueryOf(response agent.Response) string {
	if response.SQLGeneration == nil {
		return ""
	}
	return response.SQLGeneration.SQLQuery
}

func rowCountOf(response agent.Response) int {
	if response.Execution == nil {
		return 0
	}
	return response.Execution.RowCount
}
