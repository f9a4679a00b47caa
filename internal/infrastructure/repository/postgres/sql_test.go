package postgres

import (
	"database/sql"
	"fmt"
	"testing"
)

func TestIsNotFound(t *testing.T) {
	if !isNotFound(sql.ErrNoRows) {
		t.Fatalf("expected true for sql.ErrNoRows")
	}
	if !isNotFound(fmt.Errorf("select horse: %w", sql.ErrNoRows)) {
		t.Fatalf("expected true for wrapped sql.ErrNoRows")
	}
	if isNotFound(fmt.Errorf("pq: relation entries does not exist")) {
		t.Fatalf("expected false for unrelated error")
	}
	if isNotFound(nil) {
		t.Fatalf("expected false for nil error")
	}
}

func TestLowerKey(t *testing.T) {
	cases := map[string]string{
		"  Phar Lap ": "phar lap",
		"WINX":        "winx",
		"":            "",
	}
	for input, want := range cases {
		if got := lowerKey(input); got != want {
			t.Fatalf("lowerKey(%q)=%q want=%q", input, got, want)
		}
	}
}

func TestOptionalString(t *testing.T) {
	if got := optionalString("  "); got != nil {
		t.Fatalf("expected nil for blank input, got %q", *got)
	}
	got := optionalString(" Soft ")
	if got == nil || *got != "Soft" {
		t.Fatalf("unexpected optional string: %v", got)
	}
}
