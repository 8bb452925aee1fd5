package sqlguard

import (
	"strings"
	"testing"
)

func TestValidateAcceptsPlainSelect(t *testing.T) {
	result := Validate("SELECT COUNT(*) FROM athletes;")
	if !result.IsValid {
		t.Fatalf("IsValid = false, errors = %v", result.Errors)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("Errors = %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("Warnings = %v", result.Warnings)
	}
}

func TestValidateRejectsEveryForbiddenKeyword(t *testing.T) {
	for _, forbidden := range forbiddenKeywords {
		sql := "SELECT * FROM athletes WHERE name = '" + forbidden + "'"
		result := Validate(sql)
		if result.IsValid {
			t.Fatalf("statement containing %q accepted", forbidden)
		}
		found := false
		for _, e := range result.Errors {
			if strings.Contains(e, forbidden) {
				found = true
			}
		}
		if !found {
			t.Fatalf("no error names keyword %q: %v", forbidden, result.Errors)
		}
	}
}

func TestValidateRejectsNonSelect(t *testing.T) {
	result := Validate("WITH x AS (SELECT 1) SELECT * FROM x")
	if result.IsValid {
		t.Fatal("non-SELECT entry point accepted")
	}
	wantErr := "Only SELECT queries are allowed"
	found := false
	for _, e := range result.Errors {
		if e == wantErr {
			found = true
		}
	}
	if !found {
		t.Fatalf("Errors = %v, want %q", result.Errors, wantErr)
	}
}

func TestValidateCollectsAllViolations(t *testing.T) {
	result := Validate("DROP TABLE athletes; SELECT * FROM pg_catalog.pg_tables")
	if result.IsValid {
		t.Fatal("statement accepted")
	}
	if len(result.Errors) < 3 {
		t.Fatalf("expected multiple errors, got %v", result.Errors)
	}
}

func TestValidateWarnsOnUnknownTables(t *testing.T) {
	result := Validate("SELECT 1")
	if !result.IsValid {
		t.Fatalf("IsValid = false, errors = %v", result.Errors)
	}
	if len(result.Warnings) != 1 || result.Warnings[0] != "No recognized tables found in query" {
		t.Fatalf("Warnings = %v", result.Warnings)
	}
}

func TestValidateFlagsDangerousPatterns(t *testing.T) {
	cases := []string{
		"SELECT name INTO OUTFILE '/tmp/x' FROM athletes",
		"SELECT load_file('/etc/passwd') FROM athletes",
		"SELECT * INTO new_table FROM athletes",
		"SELECT 1; SELECT 2",
	}
	for _, sql := range cases {
		result := Validate(sql)
		if result.IsValid {
			t.Fatalf("dangerous statement accepted: %q", sql)
		}
	}
}

func TestValidateSuggestsLimit(t *testing.T) {
	result := Validate("SELECT * FROM athletes")
	if !result.IsValid {
		t.Fatalf("IsValid = false, errors = %v", result.Errors)
	}
	want := "Consider adding LIMIT clause for better performance"
	found := false
	for _, w := range result.Warnings {
		if w == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("Warnings = %v, want %q", result.Warnings, want)
	}

	withLimit := Validate("SELECT * FROM athletes LIMIT 10")
	for _, w := range withLimit.Warnings {
		if w == want {
			t.Fatal("LIMIT advisory emitted despite LIMIT clause")
		}
	}
}

func TestValidateStripsComments(t *testing.T) {
	result := Validate("SELECT COUNT(*) -- total\nFROM athletes /* all of them */ ;")
	if result.CleanedSQL != "SELECT COUNT(*) FROM athletes ;" {
		t.Fatalf("CleanedSQL = %q", result.CleanedSQL)
	}
}
