package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/spf13/cast"

	"github.com/doozitravel/gateway/pkg/normalize"
)

// Preset names. Signup and creator application each ship in two variants;
// the integrating application picks one through configuration.
const (
	Login            = "login"
	VerifyEmail      = "verify-email"
	ResendOTP        = "resend-otp"
	ForgotPassword   = "forgot-password"
	PasswordReset    = "password-reset"
	Username         = "username"
	Signup           = "signup"
	SignupEmbed      = "signup-embed"
	CreatorQuick     = "creator-quick"
	CreatorFull      = "creator-full"
	BusinessCampaign = "business-campaign"
)

// SocialMediaField is the synthetic field that carries the "at least one
// profile link" error on creator applications.
const SocialMediaField = "social_media"

// Categories a business campaign may be filed under.
var Categories = []string{"Restaurant", "Hotel", "Experience", "Tour", "Bar", "Retail", "Other"}

// CreatorTypes a business may ask for.
var CreatorTypes = []string{"Food", "Luxury travel", "Lifestyle", "Adventure", "Open to all"}

// ErrUnknownPreset is returned by Preset for a name it does not know.
var ErrUnknownPreset = errors.New("unknown validation preset")

var usernameCharset = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

var presets = map[string]func() *Set{
	Login:            loginSet,
	VerifyEmail:      verifyEmailSet,
	ResendOTP:        emailOnlySet(ResendOTP),
	ForgotPassword:   emailOnlySet(ForgotPassword),
	PasswordReset:    passwordResetSet,
	Username:         usernameSet,
	Signup:           signupSet,
	SignupEmbed:      signupEmbedSet,
	CreatorQuick:     creatorQuickSet,
	CreatorFull:      creatorFullSet,
	BusinessCampaign: businessCampaignSet,
}

// Preset returns a fresh rule set for name.
func Preset(name string) (*Set, error) {
	build, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return build(), nil
}

// MustPreset is Preset for names known at compile time.
func MustPreset(name string) *Set {
	s, err := Preset(name)
	if err != nil {
		panic(err)
	}
	return s
}

// Names lists every preset name in lexical order.
func Names() []string {
	out := make([]string, 0, len(presets))
	for name := range presets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ─── Normalizers ─────────────────────────────────────────────────────────

func text(fn func(string) string) func(any) any {
	return func(v any) any {
		if v == nil {
			return nil
		}
		return fn(cast.ToString(v))
	}
}

func link(p normalize.Platform) func(any) any {
	return text(func(s string) string { return normalize.SocialLink(p, s) })
}

// followers keeps blank input blank so that "required" can still tell an
// empty field from a zero count.
func followers(v any) any {
	if blank(v) {
		return nil
	}
	return normalize.ParseFollowerCount(v)
}

// ─── Shared rules ────────────────────────────────────────────────────────

func emailRule() Rule {
	return Rule{
		Field:     "email",
		Normalize: text(normalize.Email),
		Checks: []Check{
			Required("Email is required"),
			Email("Please enter a valid email"),
		},
	}
}

func usernameRule(required bool) Rule {
	checks := []Check{
		MinLen(3, "Username must be at least 3 characters"),
		MaxLen(30, "Username must be less than 30 characters"),
		Matches(usernameCharset, "Username can only contain letters, numbers, and underscores"),
	}
	if required {
		checks = append([]Check{Required("Username is required")}, checks...)
	}
	return Rule{Field: "username", Normalize: text(normalize.Username), Checks: checks}
}

// ─── Account presets ─────────────────────────────────────────────────────

func loginSet() *Set {
	return &Set{Name: Login, Rules: []Rule{
		{Field: "email", Normalize: text(normalize.Email), Checks: []Check{Required("Email is required")}},
		{Field: "password", Checks: []Check{Required("Password is required")}},
	}}
}

func verifyEmailSet() *Set {
	return &Set{Name: VerifyEmail, Rules: []Rule{
		emailRule(),
		{Field: "otp", Checks: []Check{
			Required("Verification code is required"),
			DigitsLen(6, "Verification code must be 6 digits"),
		}},
	}}
}

func emailOnlySet(name string) func() *Set {
	return func() *Set {
		return &Set{Name: name, Rules: []Rule{emailRule()}}
	}
}

func passwordResetSet() *Set {
	return &Set{Name: PasswordReset, Rules: []Rule{
		{Field: "token", Checks: []Check{Required("Reset token is missing")}},
		{Field: "password", Checks: []Check{
			Required("Password is required"),
			MinLen(8, "Password must be at least 8 characters long"),
		}},
		{Field: "confirmPassword", Checks: []Check{SameAs("password", "Passwords do not match")}},
	}}
}

func usernameSet() *Set {
	return &Set{Name: Username, Rules: []Rule{usernameRule(true)}}
}

func signupSet() *Set {
	return &Set{Name: Signup, Rules: []Rule{
		emailRule(),
		{Field: "password", Checks: []Check{
			Required("Password is required"),
			MinLen(6, "Password must be at least 6 characters"),
			HasRune(IsASCIIUpper, "Password must contain at least one uppercase letter"),
			HasRune(IsASCIILower, "Password must contain at least one lowercase letter"),
			HasRune(IsASCIIDigit, "Password must contain at least one number"),
			HasRune(IsSymbol, "Password must contain at least one special character"),
		}},
		usernameRule(false),
		{Field: "agreeToTerms", Checks: []Check{True("You must agree to the terms")}},
	}}
}

func signupEmbedSet() *Set {
	return &Set{Name: SignupEmbed, Rules: []Rule{
		emailRule(),
		{Field: "password", Checks: []Check{
			Required("Password is required"),
			MinLen(6, "Password must be at least 6 characters"),
		}},
		usernameRule(false),
		{Field: "agreeToTerms", Checks: []Check{True("You must agree")}},
	}}
}

// ─── Creator application presets ─────────────────────────────────────────

const (
	tiktokLinkMsg    = "Please enter a valid TikTok username or link"
	instagramLinkMsg = "Please enter a valid Instagram username or link"
	permissionMsg    = "You must agree to the content display permissions"
)

func creatorQuickSet() *Set {
	return &Set{Name: CreatorQuick, Rules: []Rule{
		{Field: SocialMediaField, Checks: []Check{
			AnyOf([]string{"tiktok_link", "instagram_link"}, "At least one social media profile link is required"),
		}},
		{Field: "tiktok_link", Normalize: link(normalize.TikTok), Checks: []Check{
			Contains(normalize.TikTok.Domain(), tiktokLinkMsg),
		}},
		{Field: "tiktok_followers", Normalize: followers},
		{Field: "instagram_link", Normalize: link(normalize.Instagram), Checks: []Check{
			Contains(normalize.Instagram.Domain(), instagramLinkMsg),
		}},
		{Field: "instagram_followers", Normalize: followers},
		{Field: "applicant_notes", Normalize: text(normalize.Text)},
		{Field: "public_content_allowed", Checks: []Check{True(permissionMsg)}},
	}}
}

func creatorFullSet() *Set {
	return &Set{Name: CreatorFull, Rules: []Rule{
		{Field: "tiktok_link", Normalize: link(normalize.TikTok), Checks: []Check{
			Required("TikTok profile link is required"),
			Contains(normalize.TikTok.Domain(), tiktokLinkMsg),
		}},
		{Field: "tiktok_followers", Normalize: followers, Checks: []Check{
			Required("TikTok follower count is required"),
		}},
		{Field: "instagram_link", Normalize: link(normalize.Instagram), Checks: []Check{
			Required("Instagram profile link is required"),
			Contains(normalize.Instagram.Domain(), instagramLinkMsg),
		}},
		{Field: "instagram_followers", Normalize: followers, Checks: []Check{
			Required("Instagram follower count is required"),
		}},
		{Field: "applicant_notes", Normalize: text(normalize.Text), Checks: []Check{
			Required("Tell us about the content you create"),
			MinLen(50, "Please write at least 50 characters"),
		}},
		{Field: "public_content_allowed", Checks: []Check{True(permissionMsg)}},
	}}
}

// ─── Business campaign preset ────────────────────────────────────────────

// DeliveryLeadDays is the minimum number of days between submitting a
// campaign and its delivery date.
const DeliveryLeadDays = 30

func businessCampaignSet() *Set {
	const req = "Required"
	trimmed := text(normalize.Text)
	currency := text(normalize.SanitizeCurrency)
	return &Set{Name: BusinessCampaign, Rules: []Rule{
		{Field: "businessName", Normalize: trimmed, Checks: []Check{Required(req)}},
		{Field: "businessCategory", Normalize: trimmed, Checks: []Check{
			Required(req),
			OneOf(Categories, "Select a category from the list"),
		}},
		{Field: "businessAddress", Normalize: trimmed, Checks: []Check{Required(req)}},
		{Field: "city", Normalize: trimmed, Checks: []Check{Required(req)}},
		{Field: "country", Normalize: trimmed, Checks: []Check{Required(req)}},
		{Field: "contactEmail", Normalize: text(normalize.Email), Checks: []Check{
			Required(req),
			Email("Enter a valid email"),
		}},
		{Field: "phone", Normalize: text(normalize.SanitizePhone), Checks: []Check{
			Required(req),
			RunOfDigits(6, " \t-()+", "Enter a valid phone number"),
		}},
		{Field: "inKindValue", Normalize: currency, Checks: []Check{
			Required(req),
			RunOfDigits(1, "$,", "Enter a numeric value (e.g. 200 or $200)"),
		}},
		{Field: "paidCompensation", Normalize: currency, Checks: []Check{
			When(FieldIsNot("paidCompensationOption", "not_offering"),
				RunOfDigits(1, "$,", "Enter a numeric amount")),
		}},
		{Field: "highlightRequest", Normalize: trimmed, Checks: []Check{Required(req)}},
		{Field: "brandGuidelines", Normalize: trimmed},
		{Field: "preferredCreatorType", Normalize: trimmed, Checks: []Check{
			OneOf(CreatorTypes, "Select a creator type from the list"),
		}},
		{Field: "deliveryBy", Checks: []Check{
			Required(req),
			NotBefore(DeliveryLeadDays, "Enter a valid date", "Minimum 30 days from today"),
		}},
		{Field: "reuseContent", Checks: []Check{Chosen("Please select Yes or No")}},
		{Field: "confirmAccurate", Checks: []Check{True(req)}},
		{Field: "confirmAuthorized", Checks: []Check{True(req)}},
	}}
}
