// Package explain turns raw query results into human-oriented analysis:
// statistical insights, sports-domain context, follow-up recommendations,
// and an optional model-written narrative. Everything except the narrative
// is computed locally so explanations degrade gracefully when the model
// backend is unavailable.
package explain

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/trackpulse/trackpulse/internal/llm"
	"github.com/trackpulse/trackpulse/internal/sqlexec"
)

// DataQuality summarizes how trustworthy a result set is.
type DataQuality struct {
	Completeness float64 `json:"completeness"`
	Complexity   string  `json:"complexity"`
}

// DataInsights carries the statistical observations derived from a result.
type DataInsights struct {
	Insights    []string     `json:"insights"`
	Summary     string       `json:"summary"`
	DataQuality *DataQuality `json:"data_quality,omitempty"`
}

// SportsContext carries domain commentary keyed off column names and the
// wording of the question.
type SportsContext struct {
	Context        []string `json:"context"`
	DomainInsights []string `json:"domain_insights"`
}

// TechnicalDetails echoes the execution facts an analyst may want.
type TechnicalDetails struct {
	ExecutionTime   float64 `json:"execution_time"`
	RowCount        int     `json:"row_count"`
	QueryComplexity string  `json:"query_complexity,omitempty"`
	SQLQuery        string  `json:"sql_query,omitempty"`
}

// Explanation is the full analysis for one question/result pair. For failed
// executions only ErrorExplanation and Suggestions are populated.
type Explanation struct {
	Timestamp        string            `json:"timestamp"`
	Question         string            `json:"question"`
	QuerySuccess     bool              `json:"query_success"`
	ErrorExplanation string            `json:"error_explanation,omitempty"`
	Suggestions      []string          `json:"suggestions,omitempty"`
	Summary          string            `json:"summary,omitempty"`
	DataInsights     *DataInsights     `json:"data_insights,omitempty"`
	SportsContext    *SportsContext    `json:"sports_context,omitempty"`
	TechnicalDetails *TechnicalDetails `json:"technical_details,omitempty"`
	LLMExplanation   string            `json:"llm_explanation,omitempty"`
	Recommendations  []string          `json:"recommendations,omitempty"`
}

type Explainer struct {
	client llm.Client
	logger *slog.Logger
}

func NewExplainer(client llm.Client, logger *slog.Logger) *Explainer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Explainer{client: client, logger: logger}
}

// Explain analyzes a result. The model narrative is requested only when
// includeLLM is set; a narrative failure is logged and dropped, never
// surfaced as an error.
func (e *Explainer) Explain(ctx context.Context, question string, result sqlexec.Result, includeLLM bool) Explanation {
	explanation := Explanation{
		Timestamp:    time.Now().Format(time.RFC3339),
		Question:     question,
		QuerySuccess: result.Success,
	}

	if !result.Success {
		explanation.ErrorExplanation = explainError(result)
		explanation.Suggestions = errorSuggestions(result.ErrorType)
		return explanation
	}

	explanation.Summary = resultSummary(question, result)
	explanation.DataInsights = dataInsights(result)
	explanation.SportsContext = sportsContext(question, result)
	explanation.TechnicalDetails = &TechnicalDetails{
		ExecutionTime:   result.ExecutionTime,
		RowCount:        result.RowCount,
		QueryComplexity: complexityOf(result),
		SQLQuery:        result.SQL,
	}
	explanation.Recommendations = recommendations(question, result)

	if includeLLM && e.client != nil {
		if narrative, err := e.narrate(ctx, question, result); err != nil {
			e.logger.ErrorContext(ctx, "llm explanation failed", "error", err)
		} else {
			explanation.LLMExplanation = narrative
		}
	}
	return explanation
}

func (e *Explainer) narrate(ctx context.Context, question string, result sqlexec.Result) (string, error) {
	var sample []map[string]any
	if result.Summary != nil {
		sample = result.Summary.SampleData
		if len(sample) > 2 {
			sample = sample[:2]
		}
	}

	prompt := fmt.Sprintf(`Explain these sports analytics query results in simple, conversational language:

Question: %q
Results: %d records found
Sample data: %v

Provide a brief, friendly explanation focusing on:
1. What the data shows
2. Key patterns or notable findings
3. What this means for sports performance

Keep it conversational and avoid technical jargon.`, question, result.RowCount, sample)

	return e.client.Generate(ctx, llm.Request{
		Prompt:        prompt,
		SystemMessage: "You are a sports analytics expert explaining data insights to coaches and athletes. Be conversational, insightful, and avoid technical database terminology.",
		MaxTokens:     300,
		Temperature:   0.3,
	})
}

func resultSummary(question string, result sqlexec.Result) string {
	switch result.RowCount {
	case 0:
		return fmt.Sprintf("Your question '%s' returned no results. This might mean no data matches your criteria.", question)
	case 1:
		return fmt.Sprintf("Found exactly 1 record matching your question about %s.", questionSubject(question))
	default:
		return fmt.Sprintf("Found %d records providing insights about %s.", result.RowCount, questionSubject(question))
	}
}

func questionSubject(question string) string {
	lower := strings.ToLower(question)
	switch {
	case strings.Contains(lower, "athlete"):
		return "athletes"
	case strings.Contains(lower, "activity") || strings.Contains(lower, "training"):
		return "training activities"
	case strings.Contains(lower, "velocity") || strings.Contains(lower, "speed"):
		return "movement velocity"
	case strings.Contains(lower, "acceleration"):
		return "acceleration patterns"
	case strings.Contains(lower, "distance"):
		return "distance metrics"
	case strings.Contains(lower, "performance"):
		return "performance metrics"
	default:
		return "sports data"
	}
}

func dataInsights(result sqlexec.Result) *DataInsights {
	if len(result.Data) == 0 {
		return &DataInsights{Insights: []string{}, Summary: "No data available for analysis"}
	}

	insights := []string{fmt.Sprintf("Query returned %d records", len(result.Data))}
	if result.Metadata != nil && result.Metadata.HasAggregation {
		insights = append(insights, "This is an aggregated query showing summary statistics")
	}
	if result.Metadata != nil && result.Metadata.HasJoins {
		insights = append(insights, "Query combines data from multiple tables")
	}

	var stats map[string]sqlexec.ColumnStats
	if result.Summary != nil {
		stats = result.Summary.ColumnStatistics
	}
	for _, col := range result.Columns {
		cs, ok := stats[col]
		if !ok {
			continue
		}
		switch cs.Type {
		case "numeric":
			if cs.Count > 0 && cs.Min != nil && cs.Max != nil && cs.Avg != nil {
				insights = append(insights, fmt.Sprintf("%s: ranges from %v to %v, average %v", col, *cs.Min, *cs.Max, *cs.Avg))
			}
		case "string":
			switch {
			case cs.UniqueValues == cs.Count:
				insights = append(insights, fmt.Sprintf("%s: all values are unique", col))
			case cs.UniqueValues == 1:
				insights = append(insights, fmt.Sprintf("%s: all values are the same", col))
			default:
				insights = append(insights, fmt.Sprintf("%s: %d unique values out of %d records", col, cs.UniqueValues, cs.Count))
			}
		}
	}

	if result.ExecutionTime > 2.0 {
		insights = append(insights, fmt.Sprintf("Query took %.2f seconds - consider optimization for better performance", result.ExecutionTime))
	} else if result.ExecutionTime < 0.1 {
		insights = append(insights, "Query executed very quickly - efficient data access")
	}

	for _, col := range result.Columns {
		cs, ok := stats[col]
		if !ok || cs.NullCount == 0 {
			continue
		}
		total := cs.Count + cs.NullCount
		pct := float64(cs.NullCount) / float64(total) * 100
		insights = append(insights, fmt.Sprintf("%s: %.1f%% of values are missing/null", col, pct))
	}

	return &DataInsights{
		Insights: insights,
		Summary:  fmt.Sprintf("Analysis of %d records across %d columns", len(result.Data), len(result.Columns)),
		DataQuality: &DataQuality{
			Completeness: Completeness(stats),
			Complexity:   complexityOf(result),
		},
	}
}

// Completeness reports the share of non-null values across all columns as a
// percentage rounded to one decimal. An empty result is fully complete.
func Completeness(stats map[string]sqlexec.ColumnStats) float64 {
	if len(stats) == 0 {
		return 100.0
	}
	total, nulls := 0, 0
	for _, cs := range stats {
		total += cs.Count + cs.NullCount
		nulls += cs.NullCount
	}
	if total == 0 {
		return 100.0
	}
	pct := (1 - float64(nulls)/float64(total)) * 100
	return math.Round(pct*10) / 10
}

func complexityOf(result sqlexec.Result) string {
	if result.Metadata == nil {
		return "unknown"
	}
	return result.Metadata.EstimatedComplexity
}

func explainError(result sqlexec.Result) string {
	switch result.ErrorType {
	case sqlexec.ErrorTypeTimeout:
		return "The query took too long to execute. Try simplifying your question or being more specific."
	case sqlexec.ErrorTypeDatabase:
		return fmt.Sprintf("Database error occurred: %s. The query might be malformed or reference non-existent data.", result.Error)
	default:
		return fmt.Sprintf("An error occurred while processing your question: %s", result.Error)
	}
}

func errorSuggestions(errorType string) []string {
	switch errorType {
	case sqlexec.ErrorTypeTimeout:
		return []string{
			"Try asking for a smaller date range",
			"Be more specific in your question",
			"Ask for summary statistics instead of detailed records",
		}
	case sqlexec.ErrorTypeDatabase:
		return []string{
			"Check if you're asking about data that exists",
			"Try rephrasing your question",
			"Use simpler terms in your question",
		}
	default:
		return []string{
			"Try rephrasing your question",
			"Be more specific about what you want to know",
			"Ask about a smaller subset of data",
		}
	}
}

func recommendations(question string, result sqlexec.Result) []string {
	if len(result.Data) == 0 {
		return []string{"Try expanding your search criteria or date range"}
	}

	recs := []string{}
	lower := strings.ToLower(question)

	if strings.Contains(lower, "average") {
		recs = append(recs,
			"Compare with individual records to see the full distribution",
			"Look at trends over time to see if averages are changing")
	}
	if strings.Contains(lower, "top") || strings.Contains(lower, "best") {
		recs = append(recs,
			"Analyze what training factors contribute to top performance",
			"Compare top performers across different time periods")
	}
	if len(result.Data) > 10 {
		recs = append(recs,
			"Consider filtering by specific time periods for deeper insights",
			"Look for patterns by grouping results differently")
	}
	for _, col := range result.Columns {
		if strings.Contains(strings.ToLower(col), "velocity") {
			recs = append(recs,
				"Correlate velocity data with training intensity and recovery",
				"Analyze velocity patterns across different activities")
			break
		}
	}
	recs = append(recs, "Export this data for further analysis in your preferred tools")

	if len(recs) > 4 {
		recs = recs[:4]
	}
	return recs
}

func sportsContext(question string, result sqlexec.Result) *SportsContext {
	sc := &SportsContext{Context: []string{}, DomainInsights: []string{}}

	for _, col := range result.Columns {
		colLower := strings.ToLower(col)
		switch {
		case strings.Contains(colLower, "velocity"):
			if avg, ok := columnAverage(result.Data, col); ok {
				sc.Context = append(sc.Context,
					fmt.Sprintf("Average velocity of %.1f m/s indicates %s activity", avg, categorizeVelocity(avg)),
					"Velocity represents running speed - higher values indicate faster movement")
			}
		case strings.Contains(colLower, "acceleration"):
			if avg, ok := columnAverage(result.Data, col); ok {
				sc.Context = append(sc.Context,
					fmt.Sprintf("Average acceleration of %.1f m/s² shows %s intensity changes", avg, categorizeAcceleration(avg)),
					"Acceleration measures how quickly athletes change speed - important for explosive movements")
			}
		case strings.Contains(colLower, "distance"):
			if total, count := columnSum(result.Data, col); count > 0 {
				sc.Context = append(sc.Context,
					fmt.Sprintf("Total distance covered: %.0f meters (%.1f km)", total, total/1000),
					"Distance tracking helps monitor training load and work rate")
			}
		case strings.Contains(colLower, "intensity"):
			if value, count, ok := mostCommonString(result.Data, col); ok {
				sc.Context = append(sc.Context,
					fmt.Sprintf("Most common intensity level: %s (%d occurrences)", value, count),
					"Intensity levels help coaches understand training stress and recovery needs")
			}
		case strings.Contains(colLower, "band"):
			for _, band := range distinctStrings(result.Data, col) {
				if desc, ok := effortBands[band]; ok {
					sc.Context = append(sc.Context, band+": "+desc)
				}
			}
		}
	}

	lower := strings.ToLower(question)
	if strings.Contains(lower, "fastest") || strings.Contains(lower, "top") {
		sc.DomainInsights = append(sc.DomainInsights,
			"These results show peak performance - useful for identifying talented athletes or tracking improvements")
	}
	if strings.Contains(lower, "average") || strings.Contains(lower, "mean") {
		sc.DomainInsights = append(sc.DomainInsights,
			"Average values provide baseline performance indicators for team or individual assessment")
	}
	if strings.Contains(lower, "compare") || strings.Contains(lower, "vs") {
		sc.DomainInsights = append(sc.DomainInsights,
			"Comparative analysis helps identify performance gaps and training opportunities")
	}
	for _, word := range []string{"week", "month", "day", "recent"} {
		if strings.Contains(lower, word) {
			sc.DomainInsights = append(sc.DomainInsights,
				"Time-based analysis reveals trends, seasonal patterns, and training adaptation")
			break
		}
	}
	return sc
}

var effortBands = map[string]string{
	"zone_1": "Recovery/Easy (50-60% max heart rate)",
	"zone_2": "Base/Aerobic (60-70% max heart rate)",
	"zone_3": "Tempo (70-80% max heart rate)",
	"zone_4": "Lactate Threshold (80-90% max heart rate)",
	"zone_5": "VO2 Max/Neuromuscular (90-100% max heart rate)",
}

func categorizeVelocity(velocity float64) string {
	switch {
	case velocity <= 2:
		return "walking/recovery pace"
	case velocity <= 4:
		return "jogging/easy pace"
	case velocity <= 7:
		return "moderate running pace"
	default:
		return "high-speed running/sprinting"
	}
}

func categorizeAcceleration(acceleration float64) string {
	switch {
	case acceleration <= 2:
		return "low"
	case acceleration <= 4:
		return "moderate"
	default:
		return "high"
	}
}

func columnAverage(data []map[string]any, col string) (float64, bool) {
	sum, count := columnSum(data, col)
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

func columnSum(data []map[string]any, col string) (float64, int) {
	sum, count := 0.0, 0
	for _, row := range data {
		switch v := row[col].(type) {
		case float64:
			sum += v
			count++
		case int64:
			sum += float64(v)
			count++
		}
	}
	return sum, count
}

func mostCommonString(data []map[string]any, col string) (string, int, bool) {
	counts := make(map[string]int)
	order := []string{}
	for _, row := range data {
		if s, ok := row[col].(string); ok && s != "" {
			if counts[s] == 0 {
				order = append(order, s)
			}
			counts[s]++
		}
	}
	best, bestCount := "", 0
	for _, value := range order {
		if counts[value] > bestCount {
			best, bestCount = value, counts[value]
		}
	}
	return best, bestCount, bestCount > 0
}

func distinctStrings(data []map[string]any, col string) []string {
	seen := make(map[string]struct{})
	for _, row := range data {
		if s, ok := row[col].(string); ok && s != "" {
			seen[s] = struct{}{}
		}
	}
	values := make([]string, 0, len(seen))
	for s := range seen {
		values = append(values, s)
	}
	sort.Strings(values)
	return values
}
