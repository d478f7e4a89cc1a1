package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/doozitravel/gateway/internal/backend"
	"github.com/doozitravel/gateway/internal/reconcile"
	"github.com/doozitravel/gateway/pkg/validation"
)

// creatorBackend is the subset of *backend.Client used by CreatorHandler.
type creatorBackend interface {
	Me(ctx context.Context, token string) (*backend.Response, error)
	SubmitApplication(ctx context.Context, token string, payload map[string]any) (*backend.Response, error)
	ApplicationStatus(ctx context.Context, token, userID string) (*backend.Response, error)
}

// CreatorHandler handles creator applications.
type CreatorHandler struct {
	backend creatorBackend
	rules   *validation.Set
	clock   func() time.Time
	logger  *zap.Logger
}

// NewCreatorHandler creates a CreatorHandler. preset selects the application
// rules (validation.CreatorQuick or validation.CreatorFull).
func NewCreatorHandler(b creatorBackend, preset string, logger *zap.Logger) (*CreatorHandler, error) {
	rules, err := validation.Preset(preset)
	if err != nil {
		return nil, fmt.Errorf("creator rules: %w", err)
	}
	return &CreatorHandler{backend: b, rules: rules, clock: time.Now, logger: logger}, nil
}

// Register registers CreatorHandler routes on the given router group.
func (h *CreatorHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/creator-applications", h.Submit)
	rg.GET("/creator-applications/status", h.Status)
}

// Submit handles POST /creator-applications.
func (h *CreatorHandler) Submit(c *gin.Context) {
	s := requestSession(c, h.backend, h.logger)
	if !s.Authenticated() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	raw, ok := bindValues(c)
	if !ok {
		return
	}
	v, ok := applyRules(c, h.rules, raw)
	if !ok {
		return
	}

	resp, err := h.backend.SubmitApplication(c.Request.Context(), s.Token(), applicationPayload(v))
	if err != nil {
		respondError(c, err)
		return
	}
	if e := resp.Err(http.StatusBadRequest, "Failed to submit application"); e != nil {
		respondError(c, e)
		return
	}

	app := reconcile.ReconcileApplication(resp.Body)
	fillFromSubmission(&app, v, h.clock())

	msg := cast.ToString(resp.Body["message"])
	if msg == "" {
		msg = "Application submitted successfully"
	}
	c.JSON(http.StatusCreated, gin.H{"application": app.Payload(), "message": msg})
}

// Status handles GET /creator-applications/status. Answers are never
// cached, since the status changes when an admin reviews the application.
func (h *CreatorHandler) Status(c *gin.Context) {
	s := requestSession(c, h.backend, h.logger)
	if !s.Authenticated() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	ctx := c.Request.Context()
	userID, err := s.UserID(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	resp, err := h.backend.ApplicationStatus(ctx, s.Token(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")

	if resp.OK() && cast.ToBool(resp.Body["hasApplication"]) && resp.Data() != nil {
		app := reconcile.ReconcileApplication(resp.Body)
		c.JSON(http.StatusOK, gin.H{"success": true, "hasApplication": true, "application": app.Payload()})
		return
	}
	if !resp.OK() {
		h.logger.Warn("application status lookup failed",
			zap.Int("status", resp.Status), zap.String("message", resp.Message()))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "hasApplication": false, "application": nil})
}

// applicationPayload is the backend body for a validated application. A
// link and its follower count are only sent together.
func applicationPayload(v validation.Values) map[string]any {
	p := map[string]any{"applicant_notes": str(v, "applicant_notes")}
	for _, platform := range []string{"tiktok", "instagram"} {
		if link := str(v, platform+"_link"); link != "" {
			p[platform+"_link"] = link
			p[platform+"_followers"] = cast.ToInt(v[platform+"_followers"])
		}
	}
	if allowed, present := v["public_content_allowed"]; present {
		p["public_content_allowed"] = cast.ToBool(allowed)
	}
	return p
}

// fillFromSubmission completes app with what the client sent when the
// backend's reply left a field out.
func fillFromSubmission(app *reconcile.CreatorApplication, v validation.Values, now time.Time) {
	setString := func(dst **string, key string) {
		if *dst == nil {
			if s := str(v, key); s != "" {
				*dst = &s
			}
		}
	}
	setInt := func(dst **int, key string) {
		if *dst == nil && v[key] != nil {
			n := cast.ToInt(v[key])
			*dst = &n
		}
	}
	setString(&app.TikTokLink, "tiktok_link")
	setString(&app.InstagramLink, "instagram_link")
	setString(&app.Notes, "applicant_notes")
	setInt(&app.TikTokFollowers, "tiktok_followers")
	setInt(&app.InstagramFollowers, "instagram_followers")
	if !app.PublicContentAllowed {
		app.PublicContentAllowed = cast.ToBool(v["public_content_allowed"])
	}
	if app.AppliedAt == nil {
		t := now.UTC()
		app.AppliedAt = &t
	}
}
