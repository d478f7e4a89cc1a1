package handler_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/doozitravel/gateway/internal/gateway/handler"
	"github.com/doozitravel/gateway/pkg/validation"
)

const (
	applyRoute  = "POST /new/app/users/application"
	statusRoute = "GET /new/app/users/application/status/{id}"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func creatorUpstream(t *testing.T) *upstream {
	u := newUpstream(t)
	u.handle(applyRoute, func(w http.ResponseWriter, body map[string]any, _ *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"data": map[string]any{
				"id":             "app-1",
				"tiktok_link":    body["tiktok_link"],
				"instagram_link": body["instagram_link"],
				"created_at":     "2026-02-01T10:00:00Z",
			},
		})
	})
	u.handle(statusRoute, func(w http.ResponseWriter, _ map[string]any, r *http.Request) {
		if r.PathValue("id") != "u-7" {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "hasApplication": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":        true,
			"hasApplication": true,
			"data": map[string]any{
				"id":               "app-1",
				"status":           "Approved",
				"tiktok_followers": "12.5K",
				"reviewed_at":      "2026-02-03T08:00:00Z",
			},
		})
	})
	u.handle(meRoute, func(w http.ResponseWriter, _ map[string]any, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer opaque-token" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"result":  map[string]any{"user": map[string]any{"id": "u-7"}},
		})
	})
	return u
}

func setupCreatorRouter(t *testing.T, u *upstream, preset string) *gin.Engine {
	t.Helper()
	h, err := handler.NewCreatorHandler(u.client(t), preset, zap.NewNop())
	if err != nil {
		t.Fatalf("NewCreatorHandler: %v", err)
	}
	r, api := newRouter()
	h.Register(api)
	return r
}

func TestNewCreatorHandler_UnknownPreset(t *testing.T) {
	if _, err := handler.NewCreatorHandler(nil, "creator-medium", zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestCreatorSubmit_RequiresAuth(t *testing.T) {
	u := creatorUpstream(t)
	r := setupCreatorRouter(t, u, validation.CreatorQuick)

	w := do(r, http.MethodPost, "/api/creator-applications", `{"tiktok_link":"@sam"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if got := decode(t, w); got["error"] != "Authentication required" {
		t.Errorf("error = %v", got["error"])
	}
}

func TestCreatorSubmit_NoLinks(t *testing.T) {
	u := creatorUpstream(t)
	r := setupCreatorRouter(t, u, validation.CreatorQuick)

	w := do(r, http.MethodPost, "/api/creator-applications",
		`{"tiktok_link":"  ","instagram_link":"","public_content_allowed":true}`,
		"Authorization", "Bearer opaque-token")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	errs := decode(t, w)["errors"].(map[string]any)
	if errs[validation.SocialMediaField] != "At least one social media profile link is required" {
		t.Errorf("errors = %v", errs)
	}
	if n := u.count(applyRoute); n != 0 {
		t.Errorf("backend called %d times", n)
	}
}

func TestCreatorSubmit_NormalizesBeforeForwarding(t *testing.T) {
	u := creatorUpstream(t)
	r := setupCreatorRouter(t, u, validation.CreatorQuick)

	w := do(r, http.MethodPost, "/api/creator-applications",
		`{"tiktok_link":"@wanderlust","tiktok_followers":"10K","applicant_notes":"<b>Food</b> &amp; travel","public_content_allowed":true}`,
		"Authorization", "Bearer opaque-token")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	sent := u.body(applyRoute)
	if sent["tiktok_link"] != "https://www.tiktok.com/@wanderlust" {
		t.Errorf("tiktok_link = %v", sent["tiktok_link"])
	}
	if sent["tiktok_followers"] != float64(10000) {
		t.Errorf("tiktok_followers = %v", sent["tiktok_followers"])
	}
	if sent["applicant_notes"] != "Food & travel" {
		t.Errorf("applicant_notes = %v", sent["applicant_notes"])
	}
	if _, ok := sent["instagram_link"]; ok {
		t.Error("blank instagram link should not be sent")
	}
	if got := u.header(applyRoute).Get("Authorization"); got != "Bearer opaque-token" {
		t.Errorf("Authorization = %q", got)
	}

	got := decode(t, w)
	if got["message"] != "Application submitted successfully" {
		t.Errorf("message = %v", got["message"])
	}
	app := got["application"].(map[string]any)
	if app["id"] != "app-1" || app["status"] != "pending" || app["tiktokFollowers"] != float64(10000) {
		t.Errorf("application = %v", app)
	}
	if app["appliedAt"] != "2026-02-01T10:00:00Z" || app["publicContentAllowed"] != true {
		t.Errorf("application = %v", app)
	}
}

func TestCreatorSubmit_FullPresetNeedsNotes(t *testing.T) {
	u := creatorUpstream(t)
	r := setupCreatorRouter(t, u, validation.CreatorFull)

	w := do(r, http.MethodPost, "/api/creator-applications",
		`{"tiktok_link":"@a_b","tiktok_followers":"1.5M","instagram_link":"a_b","instagram_followers":"900","applicant_notes":"short","public_content_allowed":true}`,
		"Authorization", "Bearer opaque-token")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if got := decode(t, w); got["error"] != "Please write at least 50 characters" {
		t.Errorf("error = %v", got["error"])
	}
}

func TestCreatorStatus(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		wantHas   bool
		wantMeHit int
	}{
		{"user id from token", signedToken(t, jwt.MapClaims{"userId": "u-7"}), true, 0},
		{"user id from backend", "opaque-token", true, 1},
		{"no application", signedToken(t, jwt.MapClaims{"userId": "u-8"}), false, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := creatorUpstream(t)
			r := setupCreatorRouter(t, u, validation.CreatorQuick)

			w := do(r, http.MethodGet, "/api/creator-applications/status", "", "Authorization", "Bearer "+tc.token)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
			if got := w.Header().Get("Cache-Control"); got != "no-cache, no-store, must-revalidate" {
				t.Errorf("Cache-Control = %q", got)
			}
			if w.Header().Get("Pragma") != "no-cache" || w.Header().Get("Expires") != "0" {
				t.Errorf("missing no-cache headers: %v", w.Header())
			}
			got := decode(t, w)
			if got["success"] != true || got["hasApplication"] != tc.wantHas {
				t.Fatalf("body = %v", got)
			}
			if n := u.count(meRoute); n != tc.wantMeHit {
				t.Errorf("me calls = %d, want %d", n, tc.wantMeHit)
			}
			if !tc.wantHas {
				if got["application"] != nil {
					t.Errorf("application = %v, want null", got["application"])
				}
				return
			}
			app := got["application"].(map[string]any)
			if app["status"] != "approved" || app["tiktokFollowers"] != float64(12500) {
				t.Errorf("application = %v", app)
			}
			if app["reviewedAt"] != "2026-02-03T08:00:00Z" {
				t.Errorf("reviewedAt = %v", app["reviewedAt"])
			}
		})
	}
}

func TestCreatorStatus_Unauthenticated(t *testing.T) {
	u := creatorUpstream(t)
	r := setupCreatorRouter(t, u, validation.CreatorQuick)

	w := do(r, http.MethodGet, "/api/creator-applications/status", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	w = do(r, http.MethodGet, "/api/creator-applications/status", "", "Authorization", "Bearer revoked")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("stale token: expected 401, got %d", w.Code)
	}
	if u.count(statusRoute) != 0 {
		t.Error("status looked up without a user id")
	}
}
