package racingfeed

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Helpers for pulling typed scalars out of the feed's loosely typed JSON.
// The feed is inconsistent about both field names and value types, so every
// accessor is null tolerant: unparsable input yields nil, never an error.

func toInt(value any) *int {
	switch v := value.(type) {
	case int:
		return &v
	case int32:
		out := int(v)
		return &out
	case int64:
		out := int(v)
		return &out
	case float64:
		// JSON decoding hands every number over as float64; only whole
		// values count as integers.
		if v != math.Trunc(v) {
			return nil
		}
		out := int(v)
		return &out
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return nil
		}
		out := int(parsed)
		return &out
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		return &parsed
	default:
		return nil
	}
}

func toFloat(value any) *float64 {
	switch v := value.(type) {
	case float64:
		return &v
	case float32:
		out := float64(v)
		return &out
	case int:
		out := float64(v)
		return &out
	case int32:
		out := float64(v)
		return &out
	case int64:
		out := float64(v)
		return &out
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil
		}
		return &parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		return &parsed
	default:
		return nil
	}
}

// normalizeString trims and collapses empty/whitespace-only input to "".
func normalizeString(value any) string {
	text, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}

// normalizeCountry uppercases and truncates to the 3-character territory
// code; missing input falls back to the configured default territory.
func normalizeCountry(value any, fallback string) string {
	text := normalizeString(value)
	if text == "" {
		return fallback
	}
	text = strings.ToUpper(text)
	if len(text) > 3 {
		text = text[:3]
	}
	return text
}

// extractFirst probes keys in priority order and returns the first non-null
// value. The feed names the same field differently across record shapes
// (e.g. distance vs distanceMeters vs length); an explicit priority list
// keeps that policy in one place instead of branching per shape.
func extractFirst(record map[string]any, keys ...string) any {
	for _, key := range keys {
		if value, ok := record[key]; ok && value != nil {
			return value
		}
	}
	return nil
}

func firstInt(record map[string]any, keys ...string) *int {
	return toInt(extractFirst(record, keys...))
}

func firstFloat(record map[string]any, keys ...string) *float64 {
	return toFloat(extractFirst(record, keys...))
}

func firstString(record map[string]any, keys ...string) string {
	return normalizeString(extractFirst(record, keys...))
}
