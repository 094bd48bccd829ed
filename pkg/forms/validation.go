package forms

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Validator validates a single field value.
type Validator interface {
	Validate(value any) error
	Message() string
}

var errInvalid = errors.New("invalid")

// RequiredValidator rejects empty values.
type RequiredValidator struct{}

func (RequiredValidator) Validate(value any) error {
	if isEmpty(value) {
		return errInvalid
	}
	return nil
}

func (RequiredValidator) Message() string { return "This field is required" }

// EmailValidator validates email format. Empty values pass.
type EmailValidator struct{}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func (EmailValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok || str == "" {
		return nil
	}
	if !emailRegex.MatchString(str) {
		return errInvalid
	}
	return nil
}

func (EmailValidator) Message() string { return "Please enter a valid email address" }

// MinLengthValidator validates minimum string length in runes.
type MinLengthValidator struct {
	Min int
}

func (v MinLengthValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok || str == "" {
		return nil
	}
	if utf8.RuneCountInString(str) < v.Min {
		return errInvalid
	}
	return nil
}

func (v MinLengthValidator) Message() string {
	return fmt.Sprintf("Must be at least %d characters", v.Min)
}

// MaxLengthValidator validates maximum string length in runes.
type MaxLengthValidator struct {
	Max int
}

func (v MaxLengthValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok {
		return nil
	}
	if utf8.RuneCountInString(str) > v.Max {
		return errInvalid
	}
	return nil
}

func (v MaxLengthValidator) Message() string {
	return fmt.Sprintf("Must be at most %d characters", v.Max)
}

// PatternValidator validates strings against a regular expression.
type PatternValidator struct {
	Pattern *regexp.Regexp
	Msg     string
}

func (v PatternValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok || str == "" {
		return nil
	}
	if !v.Pattern.MatchString(str) {
		return errInvalid
	}
	return nil
}

func (v PatternValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "Invalid format"
}

// RangeValidator validates a numeric range, inclusive.
type RangeValidator struct {
	Min float64
	Max float64
}

func (v RangeValidator) Validate(value any) error {
	num, ok := toFloat64(value)
	if !ok {
		return nil
	}
	if num < v.Min || num > v.Max {
		return errInvalid
	}
	return nil
}

func (v RangeValidator) Message() string {
	return fmt.Sprintf("Must be between %v and %v", v.Min, v.Max)
}

// OneOfValidator validates that a string is one of the allowed values.
type OneOfValidator struct {
	Values []string
}

func (v OneOfValidator) Validate(value any) error {
	str, _ := value.(string)
	if str == "" {
		return nil
	}
	for _, allowed := range v.Values {
		if str == allowed {
			return nil
		}
	}
	return errInvalid
}

func (OneOfValidator) Message() string { return "Invalid selection" }

// CustomValidator wraps a validation function.
type CustomValidator struct {
	Fn  func(value any) error
	Msg string
}

func (v CustomValidator) Validate(value any) error { return v.Fn(value) }

func (v CustomValidator) Message() string { return v.Msg }

func Required() Validator { return RequiredValidator{} }

func Email() Validator { return EmailValidator{} }

func MinLength(n int) Validator { return MinLengthValidator{Min: n} }

func MaxLength(n int) Validator { return MaxLengthValidator{Max: n} }

// Pattern compiles pattern once; it panics on an invalid expression like
// regexp.MustCompile.
func Pattern(pattern string, msg ...string) Validator {
	v := PatternValidator{Pattern: regexp.MustCompile(pattern)}
	if len(msg) > 0 {
		v.Msg = msg[0]
	}
	return v
}

func Range(min, max float64) Validator { return RangeValidator{Min: min, Max: max} }

func OneOf(values ...string) Validator { return OneOfValidator{Values: values} }

func Custom(fn func(value any) error, msg string) Validator {
	return CustomValidator{Fn: fn, Msg: msg}
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	case time.Time:
		return v.IsZero()
	default:
		return false
	}
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	default:
		return 0, false
	}
}
