package schema

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`), // YYYY-MM-DD
	regexp.MustCompile(`^\d{2}/\d{2}/\d{4}`), // MM/DD/YYYY
	regexp.MustCompile(`^\d{2}-\d{2}-\d{4}`), // DD-MM-YYYY
}

// dateLayouts is the fallback parser for strings that miss the fixed patterns.
var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123,
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"Mon Jan 2 2006",
	"2006-01-02 15:04:05",
}

// IsDate reports whether v looks like a calendar date.
// time.Time values always qualify; strings must match one of the fixed
// patterns or parse with one of the fallback layouts. Numbers never qualify.
func IsDate(v any) bool {
	switch t := v.(type) {
	case time.Time:
		return !t.IsZero()
	case *time.Time:
		return t != nil && !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return false
		}
		for _, re := range datePatterns {
			if re.MatchString(s) {
				return true
			}
		}
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return true
			}
		}
	}
	return false
}

// ParseDate converts a date-like value to time.Time.
func ParseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		s := strings.TrimSpace(t)
		if datePatterns[0].MatchString(s) {
			if ts, err := time.Parse("2006-01-02", s[:10]); err == nil {
				return ts, true
			}
		}
		for _, layout := range append([]string{"01/02/2006", "02-01-2006"}, dateLayouts...) {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

// NumericValue converts v to float64 when it is a Go number or a string that
// parses as one. Non-finite values are not numeric.
func NumericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, isFinite(n)
	case float32:
		return float64(n), isFinite(float64(n))
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil && isFinite(f)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil && isFinite(f)
	}
	return 0, false
}

// isFinite rejects NaN and the infinities, which strconv accepts as "NaN"
// and "Inf".
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

var booleanWords = map[string]bool{
	"true": true, "false": true, "1": true, "0": true, "yes": true, "no": true,
}

// IsBoolean reports whether v is a bool or one of true/false/1/0/yes/no.
func IsBoolean(v any) bool {
	switch b := v.(type) {
	case bool:
		return true
	case string:
		return booleanWords[strings.ToLower(strings.TrimSpace(b))]
	default:
		if f, ok := NumericValue(v); ok {
			return f == 0 || f == 1
		}
	}
	return false
}
