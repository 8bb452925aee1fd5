// Package sqlguard validates model-generated SQL before it is allowed near
// the database. The guard is deliberately conservative: it accepts only
// single SELECT statements over the tracked sports tables and collects every
// violation it finds rather than stopping at the first.
package sqlguard

import (
	"regexp"
	"strings"
)

// Result reports the outcome of validating one statement. Errors make the
// statement unusable; warnings are advisory and lower translation confidence
// without blocking execution.
type Result struct {
	IsValid    bool     `json:"is_valid"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
	CleanedSQL string   `json:"cleaned_sql"`
}

var forbiddenKeywords = []string{
	"drop", "delete", "insert", "update", "alter", "create", "truncate",
	"grant", "revoke", "commit", "rollback", "execute", "exec", "sp_",
	"xp_", "pg_", "information_schema", "pg_catalog",
}

var allowedTables = []string{
	"activities", "athletes", "events", "efforts", "owners", "periods",
}

var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\binto\s+outfile\b`),
	regexp.MustCompile(`\bload_file\b`),
	regexp.MustCompile(`\bselect\s+into\b`),
	regexp.MustCompile(`;\s*select`),
	regexp.MustCompile(`\bunion\s+select.*information_schema`),
}

var (
	lineCommentRE  = regexp.MustCompile(`(?m)--.*$`)
	blockCommentRE = regexp.MustCompile(`(?s)/\*.*?\*/`)
	whitespaceRE   = regexp.MustCompile(`\s+`)
)

// AllowedTables returns the tables a validated statement may reference.
func AllowedTables() []string {
	out := make([]string, len(allowedTables))
	copy(out, allowedTables)
	return out
}

// Validate checks a statement against the read-only policy. The returned
// CleanedSQL has comments stripped and whitespace collapsed regardless of
// validity so callers can log a normalized form.
func Validate(sql string) Result {
	lower := strings.ToLower(strings.TrimSpace(sql))

	cleaned := lineCommentRE.ReplaceAllString(sql, "")
	cleaned = blockCommentRE.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(whitespaceRE.ReplaceAllString(cleaned, " "))

	result := Result{
		IsValid:    true,
		Errors:     []string{},
		Warnings:   []string{},
		CleanedSQL: cleaned,
	}

	for _, forbidden := range forbiddenKeywords {
		if strings.Contains(lower, forbidden) {
			result.IsValid = false
			result.Errors = append(result.Errors, "Forbidden keyword detected: "+forbidden)
		}
	}

	if !strings.HasPrefix(lower, "select") {
		result.IsValid = false
		result.Errors = append(result.Errors, "Only SELECT queries are allowed")
	}

	foundTable := false
	for _, table := range allowedTables {
		if strings.Contains(lower, table) {
			foundTable = true
			break
		}
	}
	if !foundTable {
		result.Warnings = append(result.Warnings, "No recognized tables found in query")
	}

	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(lower) {
			result.IsValid = false
			result.Errors = append(result.Errors, "Potentially dangerous pattern detected")
		}
	}

	if !strings.Contains(lower, "limit") &&
		(strings.Contains(lower, "select *") || strings.Contains(lower, "join")) {
		result.Warnings = append(result.Warnings, "Consider adding LIMIT clause for better performance")
	}

	return result
}
