// Package normalize canonicalizes loosely formatted user input before it is
// validated and forwarded to the backend.
//
// Every function here is pure: no I/O, no clock, no shared state. Validation
// (package validation) always runs on the output of these functions, never on
// the raw form values.
package normalize

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/spf13/cast"
)

// Platform identifies a social network a creator can link.
type Platform string

const (
	TikTok    Platform = "tiktok"
	Instagram Platform = "instagram"
)

// Domain returns the platform's registrable domain, e.g. "tiktok.com".
func (p Platform) Domain() string {
	return string(p) + ".com"
}

// ParsePlatform accepts "tiktok" or "instagram" in any case.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case TikTok:
		return TikTok, nil
	case Instagram:
		return Instagram, nil
	default:
		return "", fmt.Errorf("unsupported platform %q: expected %q or %q", s, TikTok, Instagram)
	}
}

// SocialLink rewrites a handle or partial link into a full profile URL.
// Rules are applied in order and the first match wins:
//
//	""                      -> ""
//	http://... / https://... -> unchanged
//	www....                 -> https://www....
//	@handle                 -> profile URL for handle
//	...<platform>.com...    -> https://...
//	handle                  -> profile URL for handle
//
// TikTok profile URLs keep the "@" (https://www.tiktok.com/@handle);
// Instagram profile URLs do not (https://www.instagram.com/handle).
func SocialLink(p Platform, raw string) string {
	if strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "http://") {
		return raw
	}

	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return ""
	case strings.HasPrefix(s, "https://"), strings.HasPrefix(s, "http://"):
		return s
	case strings.HasPrefix(s, "www."):
		return "https://" + s
	case strings.HasPrefix(s, "@"):
		return profileURL(p, s[1:])
	case strings.Contains(s, p.Domain()):
		return "https://" + s
	default:
		return profileURL(p, strings.TrimLeft(s, "@"))
	}
}

func profileURL(p Platform, handle string) string {
	if p == TikTok {
		return "https://www." + p.Domain() + "/@" + handle
	}
	return "https://www." + p.Domain() + "/" + handle
}

// ParseFollowerCount turns a follower count as typed by a user ("12K",
// "1.5m", "3400") or as sent by a backend (a JSON number) into a whole
// number. Numbers are floored; a trailing K or M multiplies by one thousand
// or one million. Anything unparsable, negative or non-finite yields 0.
func ParseFollowerCount(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case string:
		return parseFollowerString(t)
	case bool:
		return 0
	}

	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0
	}
	return floorCount(f, 1)
}

func parseFollowerString(raw string) int {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0
	}

	mult := 1.0
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = 1_000
		s = s[:len(s)-1]
	case 'm', 'M':
		mult = 1_000_000
		s = s[:len(s)-1]
	}

	f, err := cast.ToFloat64E(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return floorCount(f, mult)
}

// floorCount multiplies and floors, nudging by a tiny epsilon so that
// "2.3K" lands on 2300 rather than 2299. Results saturate at math.MaxInt.
func floorCount(f, mult float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	n := math.Floor(f*mult + 1e-9)
	if n >= math.MaxInt {
		return math.MaxInt
	}
	return int(n)
}

// SanitizePhone keeps digits, '+', '-', parentheses and spaces. It is meant
// to be applied on every keystroke and is not an E.164 normalizer.
func SanitizePhone(raw string) string {
	return keepOnly(raw, "+-() ")
}

// SanitizeCurrency keeps digits, '$', ',' and '.'.
func SanitizeCurrency(raw string) string {
	return keepOnly(raw, "$,.")
}

func keepOnly(raw, extra string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || strings.ContainsRune(extra, r) {
			return r
		}
		return -1
	}, raw)
}

// Username lowercases a username as it is entered so that every later
// comparison and availability check is case-insensitive.
func Username(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Email trims surrounding whitespace.
func Email(raw string) string {
	return strings.TrimSpace(raw)
}

var strictPolicy = bluemonday.StrictPolicy()

// Text strips any markup from a free-text field and trims it. Entities are
// decoded again afterwards so that "Tom & Jerry" survives unchanged.
func Text(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(raw)))
}

// DigitsOnly returns only the ASCII digits of s.
func DigitsOnly(s string) string {
	return keepOnly(s, "")
}
