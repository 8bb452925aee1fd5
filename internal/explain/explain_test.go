package explain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/trackpulse/trackpulse/internal/llm"
	"github.com/trackpulse/trackpulse/internal/sqlexec"
)

type fakeClient struct {
	response string
	err      error
	calls    int
}

func (f *fakeClient) Generate(_ context.Context, _ llm.Request) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeClient) Provider() string { return "fake" }

func floatPtr(v float64) *float64 { return &v }

func successfulResult() sqlexec.Result {
	return sqlexec.Result{
		Success:       true,
		SQL:           "SELECT velocity FROM efforts LIMIT 3;",
		ExecutionTime: 0.05,
		RowCount:      3,
		Columns:       []string{"velocity"},
		Data: []map[string]any{
			{"velocity": 2.0},
			{"velocity": 3.0},
			{"velocity": 4.0},
		},
		Summary: &sqlexec.Summary{
			TotalRows:    3,
			ColumnsCount: 1,
			ColumnStatistics: map[string]sqlexec.ColumnStats{
				"velocity": {Type: "numeric", Count: 3, Min: floatPtr(2.0), Max: floatPtr(4.0), Avg: floatPtr(3.0)},
			},
		},
		Metadata: &sqlexec.Metadata{QueryType: "select", EstimatedComplexity: "simple"},
	}
}

func TestExplainSuccessfulResult(t *testing.T) {
	client := &fakeClient{response: "The athletes averaged a jogging pace."}
	explainer := NewExplainer(client, nil)

	exp := explainer.Explain(context.Background(), "What's the average velocity?", successfulResult(), true)
	if !exp.QuerySuccess {
		t.Fatal("QuerySuccess = false")
	}
	if exp.Summary == "" {
		t.Fatal("missing summary")
	}
	if !strings.Contains(exp.Summary, "movement velocity") {
		t.Fatalf("Summary = %q", exp.Summary)
	}
	if exp.LLMExplanation != "The athletes averaged a jogging pace." {
		t.Fatalf("LLMExplanation = %q", exp.LLMExplanation)
	}
	if exp.TechnicalDetails == nil || exp.TechnicalDetails.RowCount != 3 {
		t.Fatalf("TechnicalDetails = %+v", exp.TechnicalDetails)
	}
	if len(exp.Recommendations) == 0 || len(exp.Recommendations) > 4 {
		t.Fatalf("Recommendations = %v", exp.Recommendations)
	}
}

func TestExplainDegradesWithoutLLM(t *testing.T) {
	client := &fakeClient{err: errors.New("backend down")}
	explainer := NewExplainer(client, nil)

	exp := explainer.Explain(context.Background(), "What's the average velocity?", successfulResult(), true)
	if exp.LLMExplanation != "" {
		t.Fatalf("LLMExplanation = %q, want empty on failure", exp.LLMExplanation)
	}
	if exp.DataInsights == nil || len(exp.DataInsights.Insights) == 0 {
		t.Fatal("local insights should survive a model failure")
	}
}

func TestExplainSkipsLLMWhenNotRequested(t *testing.T) {
	client := &fakeClient{response: "unused"}
	explainer := NewExplainer(client, nil)

	explainer.Explain(context.Background(), "How many athletes?", successfulResult(), false)
	if client.calls != 0 {
		t.Fatalf("llm calls = %d, want 0", client.calls)
	}
}

func TestExplainFailedExecution(t *testing.T) {
	explainer := NewExplainer(nil, nil)

	exp := explainer.Explain(context.Background(), "Show everything", sqlexec.Result{
		Success:   false,
		Error:     "Query timed out after 30 seconds",
		ErrorType: sqlexec.ErrorTypeTimeout,
	}, true)

	if exp.QuerySuccess {
		t.Fatal("QuerySuccess = true")
	}
	if !strings.Contains(exp.ErrorExplanation, "took too long") {
		t.Fatalf("ErrorExplanation = %q", exp.ErrorExplanation)
	}
	if len(exp.Suggestions) != 3 {
		t.Fatalf("Suggestions = %v", exp.Suggestions)
	}
	if exp.Summary != "" || exp.DataInsights != nil {
		t.Fatal("failed execution should carry only error fields")
	}
}

func TestCompleteness(t *testing.T) {
	cases := []struct {
		name  string
		stats map[string]sqlexec.ColumnStats
		want  float64
	}{
		{"no stats", nil, 100.0},
		{
			"partial nulls",
			map[string]sqlexec.ColumnStats{
				"velocity":  {Type: "numeric", Count: 8},
				"direction": {Type: "null", NullCount: 2},
			},
			80.0,
		},
		{
			"fully populated",
			map[string]sqlexec.ColumnStats{
				"band": {Type: "string", Count: 5},
			},
			100.0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Completeness(tc.stats); got != tc.want {
				t.Fatalf("Completeness() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSportsContextVelocityAndBands(t *testing.T) {
	result := sqlexec.Result{
		Success:  true,
		RowCount: 2,
		Columns:  []string{"velocity", "band"},
		Data: []map[string]any{
			{"velocity": 8.0, "band": "zone_4"},
			{"velocity": 9.0, "band": "zone_5"},
		},
	}

	sc := sportsContext("Show me the fastest sprints this week", result)

	joined := strings.Join(sc.Context, "\n")
	if !strings.Contains(joined, "high-speed running/sprinting") {
		t.Fatalf("context missing sprint category: %v", sc.Context)
	}
	if !strings.Contains(joined, "zone_4: Lactate Threshold (80-90% max heart rate)") {
		t.Fatalf("context missing band description: %v", sc.Context)
	}
	if !strings.Contains(joined, "zone_5") {
		t.Fatalf("context missing zone_5: %v", sc.Context)
	}

	insights := strings.Join(sc.DomainInsights, "\n")
	if !strings.Contains(insights, "peak performance") {
		t.Fatalf("domain insights missing peak-performance note: %v", sc.DomainInsights)
	}
	if !strings.Contains(insights, "Time-based analysis") {
		t.Fatalf("domain insights missing time note: %v", sc.DomainInsights)
	}
}

func TestVelocityCategories(t *testing.T) {
	cases := []struct {
		velocity float64
		want     string
	}{
		{1.5, "walking/recovery pace"},
		{3.0, "jogging/easy pace"},
		{6.0, "moderate running pace"},
		{9.5, "high-speed running/sprinting"},
	}
	for _, tc := range cases {
		if got := categorizeVelocity(tc.velocity); got != tc.want {
			t.Fatalf("categorizeVelocity(%v) = %q, want %q", tc.velocity, got, tc.want)
		}
	}
}

func TestDataInsightsFlagsSlowQueries(t *testing.T) {
	result := successfulResult()
	result.ExecutionTime = 3.5

	di := dataInsights(result)
	joined := strings.Join(di.Insights, "\n")
	if !strings.Contains(joined, "consider optimization") {
		t.Fatalf("insights missing slow-query note: %v", di.Insights)
	}
}
