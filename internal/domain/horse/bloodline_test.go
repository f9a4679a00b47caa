package horse

import "testing"

func TestParseBloodline_FullNotation(t *testing.T) {
	t.Parallel()

	got := ParseBloodline("2 f TIZ THE LAW (USA)-CONQUEST STRATE UP (CAN)")
	if got.Age == nil || *got.Age != 2 {
		t.Fatalf("age=%v, want 2", got.Age)
	}
	if got.Sex != "f" {
		t.Fatalf("sex=%q, want f", got.Sex)
	}
	if got.Sire != "TIZ THE LAW" {
		t.Fatalf("sire=%q", got.Sire)
	}
	if got.Dam != "CONQUEST STRATE UP" {
		t.Fatalf("dam=%q", got.Dam)
	}
	if !got.Valid() {
		t.Fatal("expected valid bloodline")
	}
}

func TestParseBloodline_SexAliases(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"4 mare SIRE A-DAM B":    "f",
		"3 gelding SIRE A-DAM B": "g",
		"5 C SIRE A-DAM B":       "c",
		"6 h SIRE A-DAM B":       "h",
	}
	for input, wantSex := range cases {
		got := ParseBloodline(input)
		if got.Sex != wantSex {
			t.Fatalf("ParseBloodline(%q) sex=%q, want %q", input, got.Sex, wantSex)
		}
		if got.Age == nil {
			t.Fatalf("ParseBloodline(%q) lost the age", input)
		}
	}
}

func TestParseBloodline_HyphenFallback(t *testing.T) {
	t.Parallel()

	got := ParseBloodline("SUPER STALLION-MARE NAME")
	if got.Age != nil || got.Sex != "" {
		t.Fatalf("fallback should leave age/sex unset, got %+v", got)
	}
	if got.Sire != "SUPER STALLION" || got.Dam != "MARE NAME" {
		t.Fatalf("sire=%q dam=%q", got.Sire, got.Dam)
	}
	if !got.Valid() {
		t.Fatal("expected valid bloodline")
	}
}

func TestParseBloodline_Degenerate(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "   ", "NO HYPHEN HERE"} {
		got := ParseBloodline(input)
		if got.Valid() {
			t.Fatalf("ParseBloodline(%q) should be invalid, got %+v", input, got)
		}
		if got.Age != nil || got.Sex != "" || got.Sire != "" || got.Dam != "" {
			t.Fatalf("ParseBloodline(%q) should be all-none, got %+v", input, got)
		}
	}
}

func TestParseBloodline_WhitespaceNormalization(t *testing.T) {
	t.Parallel()

	got := ParseBloodline("3 c  WAR   FRONT  (USA) - SWEET  LIFE ")
	if got.Sire != "WAR FRONT" {
		t.Fatalf("sire=%q", got.Sire)
	}
	if got.Dam != "SWEET LIFE" {
		t.Fatalf("dam=%q", got.Dam)
	}
}
