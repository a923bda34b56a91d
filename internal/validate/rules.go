// Package validate is a small declarative schema DSL. A schema is a pure
// function from raw decoded input to a normalized value or an ordered list of
// human readable violations.
package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var emailCheck = validator.New()

// Rule validates and normalizes a single value
type Rule interface {
	check(label string, v any) (any, []string)
	presenceOf() *presence
}

type presence struct {
	required bool
	def      any
	hasDef   bool
}

func (p *presence) presenceOf() *presence { return p }

func quote(label string) string { return `"` + label + `"` }

// StringRule validates strings
type StringRule struct {
	presence
	min, max   int
	allowEmpty bool
	keepSpace  bool
	lower      bool
	email      bool
	oneOf      []string
}

// String returns a rule for a trimmed string
func String() *StringRule { return &StringRule{min: -1, max: -1} }

// Email returns a rule for a lowercased email address
func Email() *StringRule { return &StringRule{min: -1, max: -1, lower: true, email: true} }

func (r *StringRule) Required() *StringRule   { r.required = true; return r }
func (r *StringRule) Min(n int) *StringRule   { r.min = n; return r }
func (r *StringRule) Max(n int) *StringRule   { r.max = n; return r }
func (r *StringRule) AllowEmpty() *StringRule { r.allowEmpty = true; return r }

// Untrimmed keeps surrounding whitespace, for secrets
func (r *StringRule) Untrimmed() *StringRule { r.keepSpace = true; return r }
func (r *StringRule) Default(v string) *StringRule {
	r.def, r.hasDef = v, true
	return r
}
func (r *StringRule) OneOf(values ...string) *StringRule { r.oneOf = values; return r }

func (r *StringRule) check(label string, v any) (any, []string) {
	s, ok := v.(string)
	if !ok {
		return nil, []string{quote(label) + " must be a string"}
	}
	if !r.keepSpace {
		s = strings.TrimSpace(s)
	}
	if s == "" {
		if r.allowEmpty {
			return "", nil
		}
		return nil, []string{quote(label) + " is not allowed to be empty"}
	}
	if r.lower {
		s = strings.ToLower(s)
	}

	var errs []string
	n := utf8.RuneCountInString(s)
	if r.min >= 0 && n < r.min {
		errs = append(errs, fmt.Sprintf("%s length must be at least %d characters long", quote(label), r.min))
	}
	if r.max >= 0 && n > r.max {
		errs = append(errs, fmt.Sprintf("%s length must be less than or equal to %d characters long", quote(label), r.max))
	}
	if r.email && emailCheck.Var(s, "email") != nil {
		errs = append(errs, quote(label)+" must be a valid email")
	}
	if len(r.oneOf) > 0 && !contains(r.oneOf, s) {
		errs = append(errs, fmt.Sprintf("%s must be one of [%s]", quote(label), strings.Join(r.oneOf, ", ")))
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return s, nil
}

// NumberRule validates finite numbers. Numeric strings are coerced.
type NumberRule struct {
	presence
	min, max       float64
	hasMin, hasMax bool
	integer        bool
}

func Number() *NumberRule { return &NumberRule{} }

// Int returns a number rule that only accepts integral values
func Int() *NumberRule { return &NumberRule{integer: true} }

func (r *NumberRule) Required() *NumberRule     { r.required = true; return r }
func (r *NumberRule) Min(n float64) *NumberRule { r.min, r.hasMin = n, true; return r }
func (r *NumberRule) Max(n float64) *NumberRule { r.max, r.hasMax = n, true; return r }
func (r *NumberRule) Default(n float64) *NumberRule {
	r.def, r.hasDef = n, true
	return r
}

func (r *NumberRule) check(label string, v any) (any, []string) {
	f, ok := toFloat(v)
	if !ok {
		return nil, []string{quote(label) + " must be a number"}
	}

	var errs []string
	if r.integer && f != math.Trunc(f) {
		errs = append(errs, quote(label)+" must be an integer")
	}
	if r.hasMin && f < r.min {
		errs = append(errs, fmt.Sprintf("%s must be greater than or equal to %s", quote(label), formatFloat(r.min)))
	}
	if r.hasMax && f > r.max {
		errs = append(errs, fmt.Sprintf("%s must be less than or equal to %s", quote(label), formatFloat(r.max)))
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return f, nil
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// TimeRule validates ISO-8601 timestamps and normalizes them to UTC
type TimeRule struct {
	presence
}

func Time() *TimeRule { return &TimeRule{} }

func (r *TimeRule) Required() *TimeRule { r.required = true; return r }

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

func (r *TimeRule) check(label string, v any) (any, []string) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range isoLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), nil
			}
		}
	}
	return nil, []string{quote(label) + " must be in ISO 8601 date format"}
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
