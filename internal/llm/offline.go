package llm

import (
	"context"
	"strings"
)

// OfflineClient is a deterministic stand-in used in tests and when no hosted
// backend is configured. It keys off a handful of question words so the rest
// of the pipeline exercises realistic SQL without any network dependency.
type OfflineClient struct{}

func NewOfflineClient() *OfflineClient { return &OfflineClient{} }

func (c *OfflineClient) Provider() string { return "offline" }

func (c *OfflineClient) Generate(_ context.Context, req Request) (string, error) {
	if !wantsSQL(req.SystemMessage) {
		return "The query returned a small, well-formed result set. The numbers line up with the recent training data in the store.", nil
	}

	question := strings.ToLower(questionFromPrompt(req.Prompt))
	table := "activities"
	for _, candidate := range []string{"athlete", "activit", "event", "effort", "owner", "period"} {
		if strings.Contains(question, candidate) {
			switch candidate {
			case "athlete":
				table = "athletes"
			case "activit":
				table = "activities"
			case "event":
				table = "events"
			case "effort":
				table = "efforts"
			case "owner":
				table = "owners"
			case "period":
				table = "periods"
			}
			break
		}
	}

	if strings.Contains(question, "how many") || strings.Contains(question, "count") {
		return "SELECT COUNT(*) FROM " + table + ";", nil
	}
	if strings.Contains(question, "fastest") || strings.Contains(question, "top") {
		return "SELECT * FROM events ORDER BY velocity DESC LIMIT 10;", nil
	}
	if strings.Contains(question, "average") || strings.Contains(question, "mean") {
		return "SELECT AVG(velocity) FROM events;", nil
	}
	return "SELECT * FROM " + table + " LIMIT 10;", nil
}

// questionFromPrompt isolates the user's question from a few-shot prompt.
// The translator embeds curated example questions ahead of the real one, so
// matching against the raw prompt would key off the examples instead.
func questionFromPrompt(prompt string) string {
	if idx := strings.LastIndex(prompt, "Question:"); idx >= 0 {
		prompt = prompt[idx+len("Question:"):]
	}
	if idx := strings.Index(prompt, "SQL Query:"); idx >= 0 {
		prompt = prompt[:idx]
	}
	return strings.TrimSpace(prompt)
}

// wantsSQL distinguishes the translation persona from the explanation persona
// so the offline backend can answer both.
func wantsSQL(systemMessage string) bool {
	if strings.TrimSpace(systemMessage) == "" {
		return true
	}
	return strings.Contains(strings.ToLower(systemMessage), "sql")
}
