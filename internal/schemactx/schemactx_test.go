package schemactx

import (
	"strings"
	"testing"
)

func TestSchemaContextNamesEveryTable(t *testing.T) {
	ctx := SchemaContext()
	for _, table := range []string{"ACTIVITIES", "ATHLETES", "EVENTS", "EFFORTS", "OWNERS", "PERIODS"} {
		if !strings.Contains(ctx, table) {
			t.Fatalf("schema context missing table %q", table)
		}
	}
	if strings.HasPrefix(ctx, "\n") || strings.HasSuffix(ctx, "\n") {
		t.Fatal("schema context should be trimmed")
	}
}

func TestExampleQueriesAreCopied(t *testing.T) {
	first := ExampleQueries()
	if len(first) != 8 {
		t.Fatalf("len(ExampleQueries()) = %d, want 8", len(first))
	}
	for i, ex := range first {
		if strings.TrimSpace(ex.Question) == "" {
			t.Fatalf("example %d has empty question", i)
		}
		if !strings.HasPrefix(strings.ToUpper(ex.SQL), "SELECT") {
			t.Fatalf("example %d sql does not start with SELECT: %q", i, ex.SQL)
		}
		if !strings.HasSuffix(ex.SQL, ";") {
			t.Fatalf("example %d sql missing terminator: %q", i, ex.SQL)
		}
	}

	first[0].Question = "mutated"
	second := ExampleQueries()
	if second[0].Question == "mutated" {
		t.Fatal("ExampleQueries() returned shared backing array")
	}
}
