// Package nl2sql translates natural-language questions into validated SQL
// using a pluggable language-model backend. Translation never fails with an
// error; every outcome is a ParseResult whose validity and confidence tell
// the caller how much to trust the generated statement.
package nl2sql

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/trackpulse/trackpulse/internal/llm"
	"github.com/trackpulse/trackpulse/internal/observability"
	"github.com/trackpulse/trackpulse/internal/schemactx"
	"github.com/trackpulse/trackpulse/internal/sqlguard"
)

const sqlSystemMessage = `You are a SQL expert for a sports analytics database.
Generate ONLY the SQL query without any explanation or markdown formatting.

Database Schema:
%SCHEMA%

Rules:
1. Generate PostgreSQL-compatible SQL only
2. Use proper table and column names from the schema
3. Include appropriate WHERE clauses for data filtering
4. Use JOINs when data spans multiple tables
5. Return only the SQL query, no explanations
6. Use LIMIT clauses for queries that might return many rows`

// Context carries session-derived hints into a translation. RecentQueries
// are appended to the curated few-shot examples so follow-up questions see
// what the session already asked.
type Context struct {
	RecentQueries []schemactx.Example
}

// ParseResult is the complete outcome of one translation attempt.
type ParseResult struct {
	Question   string   `json:"question"`
	SQLQuery   string   `json:"sql_query,omitempty"`
	RawSQL     string   `json:"raw_sql,omitempty"`
	IsValid    bool     `json:"is_valid"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
	Confidence float64  `json:"confidence"`
}

type Translator struct {
	client llm.Client
	logger *slog.Logger
}

func NewTranslator(client llm.Client, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{client: client, logger: logger}
}

// ParseQuestion runs the full translate-clean-validate-score pipeline. A
// backend failure yields an invalid result with zero confidence rather than
// an error; the agent decides what to tell the caller.
func (t *Translator) ParseQuestion(ctx context.Context, question string, qctx Context) ParseResult {
	examples := schemactx.ExampleQueries()
	if n := len(qctx.RecentQueries); n > 0 {
		start := n - 3
		if start < 0 {
			start = 0
		}
		examples = append(examples, qctx.RecentQueries[start:]...)
	}

	prompt := buildPrompt(question, examples)
	system := strings.Replace(sqlSystemMessage, "%SCHEMA%", schemactx.SchemaContext(), 1)

	raw, err := t.client.Generate(ctx, llm.Request{
		Prompt:        prompt,
		SystemMessage: system,
		MaxTokens:     500,
		Temperature:   0.1,
	})
	if err != nil {
		t.logger.ErrorContext(ctx, "sql generation failed", "question", question, "error", err)
		observability.IncrementTranslationFailure()
		return ParseResult{
			Question:   question,
			IsValid:    false,
			Errors:     []string{"Parser error: " + err.Error()},
			Warnings:   []string{},
			Confidence: 0.0,
		}
	}

	cleaned := CleanResponse(raw)
	validation := sqlguard.Validate(cleaned)

	result := ParseResult{
		Question:   question,
		RawSQL:     cleaned,
		IsValid:    validation.IsValid,
		Errors:     validation.Errors,
		Warnings:   validation.Warnings,
		Confidence: scoreConfidence(question, cleaned, validation),
	}
	if validation.IsValid {
		result.SQLQuery = validation.CleanedSQL
	} else {
		t.logger.WarnContext(ctx, "invalid sql generated",
			"question", question, "errors", validation.Errors)
		observability.IncrementValidationRejection()
	}
	return result
}

func buildPrompt(question string, examples []schemactx.Example) string {
	var b strings.Builder
	if len(examples) > 0 {
		b.WriteString("\n\nExamples:\n")
		for _, ex := range examples {
			b.WriteString("Q: ")
			b.WriteString(ex.Question)
			b.WriteString("\nSQL: ")
			b.WriteString(ex.SQL)
			b.WriteString("\n\n")
		}
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nSQL Query:")
	return b.String()
}

var (
	fenceOpenRE  = regexp.MustCompile("```sql\n?")
	fenceCloseRE = regexp.MustCompile("```\n?")
)

var responsePrefixes = []string{
	"Here's the SQL query:",
	"SQL Query:",
	"Query:",
	"The SQL query is:",
	"SQL:",
}

// CleanResponse strips markdown fences, chatty prefixes, and trailing prose
// from a model reply, leaving a single semicolon-terminated statement. The
// function is idempotent: cleaning an already-clean statement is a no-op.
func CleanResponse(raw string) string {
	text := fenceOpenRE.ReplaceAllString(raw, "")
	text = fenceCloseRE.ReplaceAllString(text, "")

	for _, prefix := range responsePrefixes {
		trimmed := strings.TrimSpace(text)
		if strings.HasPrefix(strings.ToLower(trimmed), strings.ToLower(prefix)) {
			text = strings.TrimSpace(trimmed[len(prefix):])
		}
	}

	var sqlLines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line != "" && !strings.HasPrefix(line, "--") && !strings.HasPrefix(strings.ToLower(line), "explanation"):
			if idx := strings.Index(line, ";"); idx >= 0 {
				sqlLines = append(sqlLines, line[:idx+1])
			} else {
				sqlLines = append(sqlLines, line)
				continue
			}
		case strings.Contains(line, ";"):
			sqlLines = append(sqlLines, line[:strings.Index(line, ";")+1])
		default:
			continue
		}
		if len(sqlLines) > 0 && strings.HasSuffix(sqlLines[len(sqlLines)-1], ";") {
			break
		}
	}

	query := strings.TrimSpace(strings.Join(sqlLines, " "))
	if query != "" && !strings.HasSuffix(query, ";") {
		query += ";"
	}
	return query
}

// scoreConfidence produces a heuristic [0,1] score for a translation. The
// score starts at full confidence and moves with validation findings and
// with how well statement complexity matches question complexity.
func scoreConfidence(question, sql string, validation sqlguard.Result) float64 {
	confidence := 1.0

	if !validation.IsValid {
		confidence -= 0.5
	}
	confidence -= float64(len(validation.Warnings)) * 0.1

	sqlTokens := len(strings.Fields(sql))
	if sqlTokens < 5 {
		confidence -= 0.2
	}

	questionWords := len(strings.Fields(question))
	if questionWords > 10 && sqlTokens > 15 {
		confidence += 0.1
	} else if questionWords < 5 && sqlTokens < 10 {
		confidence += 0.1
	}

	if confidence < 0.0 {
		return 0.0
	}
	if confidence > 1.0 {
		return 1.0
	}
	return confidence
}
