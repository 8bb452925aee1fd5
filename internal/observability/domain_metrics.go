package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	agentQuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackpulse_agent_questions_total",
			Help: "Total number of natural-language questions processed, by outcome.",
		},
		[]string{"outcome"},
	)
	translationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackpulse_agent_translation_failures_total",
			Help: "Total number of question translations that produced no usable SQL.",
		},
	)
	validationRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackpulse_agent_validation_rejections_total",
			Help: "Total number of generated SQL statements rejected by the safety gate.",
		},
	)
	queryExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackpulse_query_executions_total",
			Help: "Total number of SQL executions, by result.",
		},
		[]string{"result"},
	)
	queryExecutionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trackpulse_query_execution_seconds",
			Help:    "SQL execution latency in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)
	slowQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackpulse_slow_queries_total",
			Help: "Total number of queries exceeding the slow-query threshold.",
		},
	)
	llmRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trackpulse_llm_request_seconds",
			Help:    "Language model request latency in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
		},
		[]string{"provider", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		agentQuestionsTotal,
		translationFailuresTotal,
		validationRejectionsTotal,
		queryExecutionsTotal,
		queryExecutionSeconds,
		slowQueriesTotal,
		llmRequestSeconds,
	)
}

func ObserveQuestion(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	agentQuestionsTotal.WithLabelValues(outcome).Inc()
}

func IncrementTranslationFailure() {
	translationFailuresTotal.Inc()
}

func IncrementValidationRejection() {
	validationRejectionsTotal.Inc()
}

func ObserveQueryExecution(result string, elapsed time.Duration, slow bool) {
	queryExecutionsTotal.WithLabelValues(result).Inc()
	queryExecutionSeconds.Observe(elapsed.Seconds())
	if slow {
		slowQueriesTotal.Inc()
	}
}

func ObserveLLMRequest(provider, status string, elapsed time.Duration) {
	llmRequestSeconds.WithLabelValues(provider, status).Observe(elapsed.Seconds())
}
