package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/safezone/server/internal/apperr"
)

// Violations is the ordered list of messages produced by one validation pass
type Violations []string

// Err converts violations into a validation error, or nil when there are none
func (v Violations) Err() error {
	if len(v) == 0 {
		return nil
	}
	return apperr.Validation(v)
}

// Field binds a key to its rule
type Field struct {
	Key  string
	Rule Rule
}

// Key declares a field. Fields are checked in declaration order.
func Key(name string, rule Rule) Field {
	return Field{Key: name, Rule: rule}
}

// ObjectRule validates a map of declared fields. Undeclared fields are stripped.
type ObjectRule struct {
	presence
	fields []Field
	xor    [][2]string
}

// Object returns a rule for a nested object
func Object(fields ...Field) *ObjectRule {
	return &ObjectRule{fields: fields}
}

func (r *ObjectRule) Required() *ObjectRule { r.required = true; return r }

// Xor requires exactly one of a and b to be present
func (r *ObjectRule) Xor(a, b string) *ObjectRule {
	r.xor = append(r.xor, [2]string{a, b})
	return r
}

// Validate runs the schema against a decoded document
func (r *ObjectRule) Validate(input map[string]any) (map[string]any, Violations) {
	out, errs := r.object("", input)
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func (r *ObjectRule) check(label string, v any) (any, []string) {
	switch o := v.(type) {
	case map[string]any:
		return r.object(label, o)
	case string:
		var decoded map[string]any
		if err := json.Unmarshal([]byte(o), &decoded); err == nil && decoded != nil {
			return r.object(label, decoded)
		}
	}
	return nil, []string{quote(label) + " must be of type object"}
}

func (r *ObjectRule) object(label string, input map[string]any) (map[string]any, []string) {
	out := make(map[string]any, len(r.fields))
	var errs []string

	for _, f := range r.fields {
		path := f.Key
		if label != "" {
			path = label + "." + f.Key
		}

		raw, ok := input[f.Key]
		if !ok || raw == nil {
			p := f.Rule.presenceOf()
			switch {
			case p.required:
				errs = append(errs, quote(path)+" is required")
			case p.hasDef:
				out[f.Key] = p.def
			}
			continue
		}

		v, fieldErrs := f.Rule.check(path, raw)
		if len(fieldErrs) > 0 {
			errs = append(errs, fieldErrs...)
			continue
		}
		out[f.Key] = v
	}

	for _, pair := range r.xor {
		_, hasA := out[pair[0]]
		_, hasB := out[pair[1]]
		peers := strings.Join(pair[:], ", ")
		subject := "value"
		if label != "" {
			subject = label
		}
		switch {
		case hasA && hasB:
			errs = append(errs, fmt.Sprintf("%s contains a conflict between exclusive peers [%s]", quote(subject), peers))
		case !hasA && !hasB && !xorFieldFailed(r.fields, pair, input):
			errs = append(errs, fmt.Sprintf("%s must contain at least one of [%s]", quote(subject), peers))
		}
	}

	return out, errs
}

// xorFieldFailed reports whether a peer was supplied but rejected, in which
// case its own violation already explains the failure.
func xorFieldFailed(fields []Field, pair [2]string, input map[string]any) bool {
	for _, f := range fields {
		if f.Key != pair[0] && f.Key != pair[1] {
			continue
		}
		if v, ok := input[f.Key]; ok && v != nil {
			return true
		}
	}
	return false
}
