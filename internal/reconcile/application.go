package reconcile

import (
	"strings"
	"time"

	"github.com/doozitravel/gateway/pkg/normalize"
)

// Status is a creator application's review state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Terminal reports whether the application has been reviewed. A user may
// only apply again once the previous application is terminal; the backend
// enforces that.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CreatorApplication is the reconciled application shape.
type CreatorApplication struct {
	ID                   string     `json:"id"`
	Status               Status     `json:"status"`
	TikTokLink           *string    `json:"tiktokLink,omitempty"`
	TikTokFollowers      *int       `json:"tiktokFollowers,omitempty"`
	InstagramLink        *string    `json:"instagramLink,omitempty"`
	InstagramFollowers   *int       `json:"instagramFollowers,omitempty"`
	Notes                *string    `json:"notes,omitempty"`
	PublicContentAllowed bool       `json:"publicContentAllowed"`
	AppliedAt            *time.Time `json:"appliedAt,omitempty"`
	ReviewedAt           *time.Time `json:"reviewedAt,omitempty"`
	AdminNotes           *string    `json:"adminNotes,omitempty"`
}

var applicationSources = []string{
	"data.application", "data", "result.application", "result", "application", "",
}

var (
	appID                 = Aliases(applicationSources, "_id", "id", "application_id")
	appStatus             = Aliases(applicationSources, "status", "application_status")
	appTikTokLink         = Aliases(applicationSources, "tiktok_link", "tiktokLink")
	appTikTokFollowers    = Aliases(applicationSources, "tiktok_followers", "tiktokFollowers")
	appInstagramLink      = Aliases(applicationSources, "instagram_link", "instagramLink")
	appInstagramFollowers = Aliases(applicationSources, "instagram_followers", "instagramFollowers")
	appNotes              = Aliases(applicationSources, "applicant_notes", "applicantNotes", "notes")
	appPublicContent      = Aliases(applicationSources, "public_content_allowed", "publicContentAllowed")
	appAppliedAt          = Aliases(applicationSources, "applied_at", "appliedAt", "created_at", "createdAt")
	appReviewedAt         = Aliases(applicationSources, "reviewed_at", "reviewedAt")
	appAdminNotes         = Aliases(applicationSources, "admin_notes", "adminNotes")
)

func asFollowers(v any) (int, bool) {
	return normalize.ParseFollowerCount(v), true
}

func asStatus(v any) (Status, bool) {
	s, ok := asNonEmptyString(v)
	return Status(strings.ToLower(strings.TrimSpace(s))), ok
}

// ReconcileApplication builds a CreatorApplication from any of the backend's
// application payload shapes. An application without a status is pending.
func ReconcileApplication(p Payload) CreatorApplication {
	var a CreatorApplication
	a.ID, _ = Lookup(p, appID, asNonEmptyString)
	if s, ok := Lookup(p, appStatus, asStatus); ok {
		a.Status = s
	} else {
		a.Status = StatusPending
	}
	a.TikTokLink = optional(Lookup(p, appTikTokLink, asString))
	a.TikTokFollowers = optional(Lookup(p, appTikTokFollowers, asFollowers))
	a.InstagramLink = optional(Lookup(p, appInstagramLink, asString))
	a.InstagramFollowers = optional(Lookup(p, appInstagramFollowers, asFollowers))
	a.Notes = optional(Lookup(p, appNotes, asString))
	a.PublicContentAllowed, _ = Lookup(p, appPublicContent, asBool)
	a.AppliedAt = optional(Lookup(p, appAppliedAt, asTime))
	a.ReviewedAt = optional(Lookup(p, appReviewedAt, asTime))
	a.AdminNotes = optional(Lookup(p, appAdminNotes, asString))
	return a
}

// Payload renders the canonical form of a.
func (a CreatorApplication) Payload() Payload {
	p := Payload{
		"id":                   a.ID,
		"status":               string(a.Status),
		"publicContentAllowed": a.PublicContentAllowed,
	}
	putString(p, "tiktokLink", a.TikTokLink)
	putString(p, "instagramLink", a.InstagramLink)
	putString(p, "notes", a.Notes)
	putString(p, "adminNotes", a.AdminNotes)
	if a.TikTokFollowers != nil {
		p["tiktokFollowers"] = *a.TikTokFollowers
	}
	if a.InstagramFollowers != nil {
		p["instagramFollowers"] = *a.InstagramFollowers
	}
	putTime(p, "appliedAt", a.AppliedAt)
	putTime(p, "reviewedAt", a.ReviewedAt)
	return p
}

func putString(p Payload, key string, v *string) {
	if v != nil {
		p[key] = *v
	}
}

func putTime(p Payload, key string, v *time.Time) {
	if v != nil {
		p[key] = v.Format(time.RFC3339Nano)
	}
}
