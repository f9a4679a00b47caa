package horse

import (
	"regexp"
	"strconv"
	"strings"
)

// Bloodline is the parsed form of the feed's compact breeding notation,
// e.g. "2 f TIZ THE LAW (USA)-CONQUEST STRATE UP (CAN)".
type Bloodline struct {
	Age  *int
	Sex  string
	Sire string
	Dam  string
}

var (
	bloodlineRegex     = regexp.MustCompile(`^\s*(\d+)\s+([A-Za-z]+)\s+(.+?)\s*-\s*(.+?)\s*$`)
	territorySuffixRe  = regexp.MustCompile(`\s*\([A-Z]{2,3}\)\s*$`)
	innerWhitespaceRe  = regexp.MustCompile(`\s+`)
	canonicalSexByName = map[string]string{
		"m": "m", "f": "f", "g": "g", "c": "c", "h": "h",
		"mare":     "f",
		"filly":    "f",
		"colt":     "c",
		"gelding":  "g",
		"horse":    "h",
		"stallion": "h",
	}
)

// ParseBloodline extracts age, sex, sire and dam from free-text breeding
// notation. Records that omit age/sex but still read "SIRE-DAM" fall back to
// a plain split on the first hyphen; anything else yields an empty record.
func ParseBloodline(raw string) Bloodline {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Bloodline{}
	}

	if match := bloodlineRegex.FindStringSubmatch(raw); match != nil {
		if sex, ok := canonicalSexByName[strings.ToLower(match[2])]; ok {
			age, err := strconv.Atoi(match[1])
			if err == nil {
				return Bloodline{
					Age:  &age,
					Sex:  sex,
					Sire: cleanPedigreeName(match[3]),
					Dam:  cleanPedigreeName(match[4]),
				}
			}
		}
	}

	// Some upstream records drop age/sex but still encode "SIRE-DAM".
	idx := strings.Index(raw, "-")
	if idx < 0 {
		return Bloodline{}
	}
	return Bloodline{
		Sire: cleanPedigreeName(raw[:idx]),
		Dam:  cleanPedigreeName(raw[idx+1:]),
	}
}

func (b Bloodline) Valid() bool {
	return b.Sire != "" && b.Dam != ""
}

// cleanPedigreeName drops a trailing parenthetical territory code such as
// "(USA)" and collapses interior whitespace.
func cleanPedigreeName(value string) string {
	value = territorySuffixRe.ReplaceAllString(strings.TrimSpace(value), "")
	return innerWhitespaceRe.ReplaceAllString(strings.TrimSpace(value), " ")
}
