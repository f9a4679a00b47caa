package racingfeed

import "testing"

func TestToInt(t *testing.T) {
	t.Parallel()

	if got := toInt("123"); got == nil || *got != 123 {
		t.Fatalf("toInt(\"123\")=%v, want 123", got)
	}
	if got := toInt(" 45 "); got == nil || *got != 45 {
		t.Fatalf("toInt with whitespace=%v, want 45", got)
	}
	if got := toInt(float64(7)); got == nil || *got != 7 {
		t.Fatalf("toInt(7.0)=%v, want 7", got)
	}
	if got := toInt(7.5); got != nil {
		t.Fatalf("toInt(7.5)=%v, want nil", got)
	}
	if got := toInt("invalid"); got != nil {
		t.Fatalf("toInt(invalid)=%v, want nil", got)
	}
	if got := toInt(nil); got != nil {
		t.Fatalf("toInt(nil)=%v, want nil", got)
	}
	if got := toInt(true); got != nil {
		t.Fatalf("toInt(true)=%v, want nil", got)
	}
}

func TestToFloat(t *testing.T) {
	t.Parallel()

	if got := toFloat(7); got == nil || *got != 7.0 {
		t.Fatalf("toFloat(7)=%v, want 7.0", got)
	}
	if got := toFloat(int32(7)); got == nil || *got != 7.0 {
		t.Fatalf("toFloat(int32(7))=%v, want 7.0", got)
	}
	if got := toFloat(int64(7)); got == nil || *got != 7.0 {
		t.Fatalf("toFloat(int64(7))=%v, want 7.0", got)
	}
	if got := toFloat("54.5"); got == nil || *got != 54.5 {
		t.Fatalf("toFloat(\"54.5\")=%v, want 54.5", got)
	}
	if got := toFloat("not a number"); got != nil {
		t.Fatalf("toFloat(garbage)=%v, want nil", got)
	}
	if got := toFloat(nil); got != nil {
		t.Fatalf("toFloat(nil)=%v, want nil", got)
	}
}

func TestNormalizeString(t *testing.T) {
	t.Parallel()

	if got := normalizeString("  PHAR LAP  "); got != "PHAR LAP" {
		t.Fatalf("got %q", got)
	}
	if got := normalizeString("   "); got != "" {
		t.Fatalf("whitespace-only should collapse, got %q", got)
	}
	if got := normalizeString(42); got != "" {
		t.Fatalf("non-string should collapse, got %q", got)
	}
}

func TestNormalizeCountry(t *testing.T) {
	t.Parallel()

	if got := normalizeCountry(nil, "AUS"); got != "AUS" {
		t.Fatalf("nil should fall back, got %q", got)
	}
	if got := normalizeCountry("nz", "AUS"); got != "NZ" {
		t.Fatalf("got %q", got)
	}
	if got := normalizeCountry("united states", "AUS"); got != "UNI" {
		t.Fatalf("should truncate to 3 chars, got %q", got)
	}
}

func TestExtractFirst(t *testing.T) {
	t.Parallel()

	record := map[string]any{
		"distanceMeters": float64(1200),
		"length":         float64(9999),
		"going":          nil,
	}

	if got := firstInt(record, "distance", "distanceMeters", "length"); got == nil || *got != 1200 {
		t.Fatalf("priority probing failed: %v", got)
	}
	if got := extractFirst(record, "going"); got != nil {
		t.Fatalf("explicit null should be skipped, got %v", got)
	}
	if got := extractFirst(record, "missing"); got != nil {
		t.Fatalf("missing key should yield nil, got %v", got)
	}
}
