package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// str renders a field value as trimmed text. Nil becomes "".
func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format(time.RFC3339)
	}
	return strings.TrimSpace(cast.ToString(v))
}

func blank(v any) bool {
	return str(v) == ""
}

// Required fails when the value is absent, nil or whitespace.
func Required(msg string) Check {
	return func(f Field) string {
		if blank(f.Value) {
			return msg
		}
		return ""
	}
}

// True fails unless the value is an explicit true ("true", 1, true).
func True(msg string) Check {
	return func(f Field) string {
		if b, err := cast.ToBoolE(f.Value); err != nil || !b {
			return msg
		}
		return ""
	}
}

// Chosen fails unless the value is an explicit boolean choice. A nil or
// absent value is "no selection", which is distinct from false.
func Chosen(msg string) Check {
	return func(f Field) string {
		if blank(f.Value) {
			return msg
		}
		if _, err := cast.ToBoolE(f.Value); err != nil {
			return msg
		}
		return ""
	}
}

// tag runs a validator tag against the trimmed value. Blank values pass so
// format checks can be combined with an optional field.
func tag(t, msg string) Check {
	return func(f Field) string {
		s := str(f.Value)
		if s == "" {
			return ""
		}
		if err := validate.Var(s, t); err != nil {
			return msg
		}
		return ""
	}
}

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Email checks a general local@domain.tld shape. The domain must carry a dot
// even where RFC 5322 would not insist on one.
func Email(msg string) Check {
	format := tag("email", msg)
	return func(f Field) string {
		if m := format(f); m != "" {
			return m
		}
		if s := str(f.Value); s != "" && !emailShape.MatchString(s) {
			return msg
		}
		return ""
	}
}

// MinLen fails when the value has fewer than n characters.
func MinLen(n int, msg string) Check { return tag(fmt.Sprintf("min=%d", n), msg) }

// MaxLen fails when the value has more than n characters.
func MaxLen(n int, msg string) Check { return tag(fmt.Sprintf("max=%d", n), msg) }

// DigitsLen fails unless the value is exactly n ASCII digits.
func DigitsLen(n int, msg string) Check { return tag(fmt.Sprintf("len=%d,number", n), msg) }

// Matches fails when the value does not match re.
func Matches(re *regexp.Regexp, msg string) Check {
	return func(f Field) string {
		s := str(f.Value)
		if s != "" && !re.MatchString(s) {
			return msg
		}
		return ""
	}
}

// Contains fails when the value does not contain sub.
func Contains(sub, msg string) Check {
	return func(f Field) string {
		s := str(f.Value)
		if s != "" && !strings.Contains(s, sub) {
			return msg
		}
		return ""
	}
}

// HasRune fails when no rune of the value satisfies pred.
func HasRune(pred func(rune) bool, msg string) Check {
	return func(f Field) string {
		s := str(f.Value)
		if s != "" && !strings.ContainsFunc(s, pred) {
			return msg
		}
		return ""
	}
}

// IsSymbol matches anything that is not an ASCII letter or digit.
func IsSymbol(r rune) bool {
	return !(r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)))
}

// IsASCIIUpper, IsASCIILower and IsASCIIDigit are the character classes the
// password rules use.
func IsASCIIUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func IsASCIILower(r rune) bool { return r >= 'a' && r <= 'z' }
func IsASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }

// RunOfDigits strips every rune in strip and then requires at least n
// consecutive digits.
func RunOfDigits(n int, strip, msg string) Check {
	re := regexp.MustCompile(fmt.Sprintf(`\d{%d,}`, n))
	return func(f Field) string {
		s := str(f.Value)
		if s == "" {
			return ""
		}
		s = strings.Map(func(r rune) rune {
			if strings.ContainsRune(strip, r) {
				return -1
			}
			return r
		}, s)
		if !re.MatchString(s) {
			return msg
		}
		return ""
	}
}

// OneOf fails when a non-blank value is not one of options.
func OneOf(options []string, msg string) Check {
	return func(f Field) string {
		s := str(f.Value)
		if s != "" && !slices.Contains(options, s) {
			return msg
		}
		return ""
	}
}

// SameAs fails when a non-blank value differs from the value of other.
func SameAs(other, msg string) Check {
	return func(f Field) string {
		s := str(f.Value)
		if s != "" && s != str(f.Form[other]) {
			return msg
		}
		return ""
	}
}

// AnyOf fails when every one of fields is blank. It ignores the rule's own
// value, so it is usually bound to a synthetic field name.
func AnyOf(fields []string, msg string) Check {
	return func(f Field) string {
		for _, name := range fields {
			if !blank(f.Form[name]) {
				return ""
			}
		}
		return msg
	}
}

// When runs checks only if pred holds for the field.
func When(pred func(Field) bool, checks ...Check) Check {
	return func(f Field) string {
		if !pred(f) {
			return ""
		}
		for _, c := range checks {
			if msg := c(f); msg != "" {
				return msg
			}
		}
		return ""
	}
}

// FieldIsNot is a When predicate: true unless form[name] equals value.
func FieldIsNot(name, value string) func(Field) bool {
	return func(f Field) bool { return str(f.Form[name]) != value }
}

var dateLayouts = []string{time.DateOnly, time.RFC3339, time.RFC3339Nano}

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func ParseDate(v any, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	if t, ok := v.(time.Time); ok {
		return t, false, nil
	}
	s := str(v)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, layout == time.DateOnly, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("parse date %q", s)
}

// NotBefore fails when the value is earlier than now plus days. A calendar
// date is compared with the calendar date of now plus days, so the boundary
// day itself passes; a timestamp is compared instant to instant.
func NotBefore(days int, invalidMsg, tooSoonMsg string) Check {
	return func(f Field) string {
		if blank(f.Value) {
			return ""
		}
		loc := f.Now.Location()
		t, dateOnly, err := ParseDate(f.Value, loc)
		if err != nil {
			return invalidMsg
		}
		earliest := f.Now.AddDate(0, 0, days)
		if dateOnly {
			y, m, d := earliest.Date()
			earliest = time.Date(y, m, d, 0, 0, 0, 0, loc)
		}
		if t.Before(earliest) {
			return tooSoonMsg
		}
		return ""
	}
}
