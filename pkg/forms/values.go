package forms

import (
	"strconv"
	"strings"
	"time"
)

// Values wraps a decoded event payload and converts entries to Go types.
// Missing or mistyped entries yield zero values.
type Values map[string]any

// Has reports whether key is present.
func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// String returns the trimmed string at key.
func (v Values) String(key string) string {
	switch val := v[key].(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// Bool accepts booleans and the usual checkbox encodings.
func (v Values) Bool(key string) bool {
	switch val := v[key].(type) {
	case bool:
		return val
	case string:
		return val == "true" || val == "on" || val == "1"
	case float64:
		return val != 0
	default:
		return false
	}
}

// Int returns the integer at key, parsing strings.
func (v Values) Int(key string) int {
	switch val := v[key].(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Strings returns a list value. A comma separated string is split.
func (v Values) Strings(key string) []string {
	var out []string
	switch val := v[key].(type) {
	case []string:
		out = append(out, val...)
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case string:
		out = strings.Split(val, ",")
	}

	cleaned := out[:0]
	for _, s := range out {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned
}

// Time parses the value at key with layout in loc. It returns the zero time
// when the value is absent or malformed.
func (v Values) Time(key, layout string, loc *time.Location) time.Time {
	s := v.String(key)
	if s == "" {
		return time.Time{}
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(layout, s, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Layouts used by the date and time controls.
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04"
	DateTimeLayout = "2006-01-02T15:04"
)
