// Package campaign turns a business's campaign request into the backend
// payload, files it, and produces the receipt the business keeps.
package campaign

import (
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/doozitravel/gateway/pkg/validation"
)

// NotOffering is the paidCompensationOption value meaning no cash on top of
// the in-kind experience.
const NotOffering = "not_offering"

// Submission is the payload sent to the backend. Optional strings are nil
// when left blank.
type Submission struct {
	BusinessName         string  `json:"businessName"`
	BusinessCategory     string  `json:"businessCategory"`
	BusinessAddress      string  `json:"businessAddress"`
	City                 string  `json:"city"`
	Country              string  `json:"country"`
	ContactEmail         string  `json:"contactEmail"`
	Phone                string  `json:"phone"`
	InKindValue          string  `json:"inKindValue"`
	PaidCompensation     *string `json:"paidCompensation"`
	HighlightRequest     string  `json:"highlightRequest"`
	BrandGuidelines      *string `json:"brandGuidelines"`
	PreferredCreatorType *string `json:"preferredCreatorType"`
	DeliveryBy           string  `json:"deliveryBy"`
	PostDoozi            bool    `json:"postDoozi"`
	PostTiktok           bool    `json:"postTiktok"`
	PostInstagram        bool    `json:"postInstagram"`
	ReuseContent         bool    `json:"reuseContent"`
	ConfirmAccurate      bool    `json:"confirmAccurate"`
	ConfirmAuthorized    bool    `json:"confirmAuthorized"`
}

// FromValues builds the payload from a normalized, validated field bag.
func FromValues(v validation.Values) Submission {
	s := Submission{
		BusinessName:         str(v, "businessName"),
		BusinessCategory:     str(v, "businessCategory"),
		BusinessAddress:      str(v, "businessAddress"),
		City:                 str(v, "city"),
		Country:              str(v, "country"),
		ContactEmail:         str(v, "contactEmail"),
		Phone:                str(v, "phone"),
		InKindValue:          str(v, "inKindValue"),
		HighlightRequest:     str(v, "highlightRequest"),
		BrandGuidelines:      optional(v, "brandGuidelines"),
		PreferredCreatorType: optional(v, "preferredCreatorType"),
		DeliveryBy:           deliveryDate(v["deliveryBy"]),
		PostDoozi:            true,
		PostTiktok:           cast.ToBool(v["postTiktok"]),
		PostInstagram:        cast.ToBool(v["postInstagram"]),
		ReuseContent:         cast.ToBool(v["reuseContent"]),
		ConfirmAccurate:      cast.ToBool(v["confirmAccurate"]),
		ConfirmAuthorized:    cast.ToBool(v["confirmAuthorized"]),
	}
	if str(v, "paidCompensationOption") != NotOffering {
		s.PaidCompensation = optional(v, "paidCompensation")
	}
	return s
}

// Posts lists where the content will be published.
func (s Submission) Posts() string {
	out := []string{"Doozi"}
	if s.PostTiktok {
		out = append(out, "TikTok")
	}
	if s.PostInstagram {
		out = append(out, "Instagram")
	}
	return strings.Join(out, ", ")
}

func str(v validation.Values, key string) string {
	if v[key] == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v[key]))
}

func optional(v validation.Values, key string) *string {
	s := str(v, key)
	if s == "" {
		return nil
	}
	return &s
}

// deliveryDate reduces a date or timestamp to its calendar date in the
// offset it was given in.
func deliveryDate(v any) string {
	t, _, err := validation.ParseDate(v, time.UTC)
	if err != nil {
		return strings.TrimSpace(cast.ToString(v))
	}
	return t.Format(time.DateOnly)
}
