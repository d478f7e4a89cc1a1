// Package validation applies declarative, per-form rule sets to a bag of
// normalized field values and reports the first failing message per field.
//
// A Set is ordered: rules run in declared order, each rule stops at its first
// failing check, and every rule runs regardless of failures elsewhere. The
// result is a field -> message map; an empty map means the form is valid.
// Validation never performs I/O. Username availability is a separate,
// asynchronous concern (see package availability).
package validation

import (
	"fmt"
	"sort"
	"time"
)

// Values is a form's field bag, keyed by the field names the client sends.
type Values map[string]any

// Errors maps a field name to its first failing message.
type Errors map[string]string

// OK reports whether no field failed.
func (e Errors) OK() bool { return len(e) == 0 }

// Fields returns the failing field names in lexical order.
func (e Errors) Fields() []string {
	out := make([]string, 0, len(e))
	for k := range e {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Field is what a Check sees: the field's own value plus the whole form for
// cross-field rules, and the instant the validation is taking place.
type Field struct {
	Name  string
	Value any
	Form  Values
	Now   time.Time
}

// Check returns an error message, or "" when the field passes.
type Check func(f Field) string

// Rule binds an ordered list of checks to one field. Normalize, when set, is
// applied to the raw value before any check runs (see Set.Normalize).
type Rule struct {
	Field     string
	Normalize func(any) any
	Checks    []Check
}

// Set is a named, ordered collection of rules for one form.
type Set struct {
	Name  string
	Rules []Rule

	// Clock supplies "now" for date-range checks. Nil means time.Now.
	Clock func() time.Time
}

func (s *Set) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// Normalize returns a copy of raw with each rule's normalizer applied to the
// fields that are present. Fields without a rule are copied through.
func (s *Set) Normalize(raw Values) Values {
	out := make(Values, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	for _, r := range s.Rules {
		if r.Normalize == nil {
			continue
		}
		if v, ok := raw[r.Field]; ok {
			out[r.Field] = r.Normalize(v)
		}
	}
	return out
}

// Validate checks v against the set using the set's clock.
func (s *Set) Validate(v Values) Errors {
	return s.ValidateAt(v, s.now())
}

// ValidateAt checks v as of now.
func (s *Set) ValidateAt(v Values, now time.Time) Errors {
	errs := Errors{}
	for _, r := range s.Rules {
		f := Field{Name: r.Field, Value: v[r.Field], Form: v, Now: now}
		for _, check := range r.Checks {
			if msg := check(f); msg != "" {
				errs[r.Field] = msg
				break
			}
		}
	}
	return errs
}

// Apply normalizes raw and validates the result.
func (s *Set) Apply(raw Values) (Values, Errors) {
	v := s.Normalize(raw)
	return v, s.Validate(v)
}

// First returns the failing field and message that comes first in declared
// rule order, or empty strings when errs is empty.
func (s *Set) First(errs Errors) (field, msg string) {
	for _, r := range s.Rules {
		if m, ok := errs[r.Field]; ok {
			return r.Field, m
		}
	}
	// Errors not produced by this set; fall back to lexical order.
	if fields := errs.Fields(); len(fields) > 0 {
		return fields[0], errs[fields[0]]
	}
	return "", ""
}

// InvalidError carries a failed validation out of a submit call. Field and
// Message are the first failure in declared order.
type InvalidError struct {
	Preset  string
	Errors  Errors
	Field   string
	Message string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Preset, e.Field, e.Message)
}

// Err wraps errs as an *InvalidError, or returns nil when errs is empty.
func (s *Set) Err(errs Errors) error {
	if errs.OK() {
		return nil
	}
	field, msg := s.First(errs)
	return &InvalidError{Preset: s.Name, Errors: errs, Field: field, Message: msg}
}
