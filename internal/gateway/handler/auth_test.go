package handler_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/doozitravel/gateway/internal/gateway/handler"
	"github.com/doozitravel/gateway/pkg/validation"
)

const (
	loginRoute    = "POST /new/app/users/login"
	signupRoute   = "POST /new/app/users/signup"
	meRoute       = "GET /new/app/users/protected/me"
	checkRoute    = "GET /new/app/users/check-username"
	verifyRoute   = "POST /new/app/users/verify-email"
	forgotRoute   = "POST /new/app/users/forgot-password"
	resetRoute    = "POST /new/app/users/reset-password"
	resetTokRoute = "GET /new/app/users/verify-reset-token"
)

func authUpstream(t *testing.T) *upstream {
	u := newUpstream(t)
	u.handle(loginRoute, func(w http.ResponseWriter, body map[string]any, _ *http.Request) {
		switch body["email"] {
		case "html@doozi.app", "later@doozi.app":
			writeHTML(w, http.StatusServiceUnavailable)
		case "sam@doozi.app":
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"data": map[string]any{
					"token": "tok-sam",
					"user":  map[string]any{"_id": "u1", "email": "sam@doozi.app", "full_name": "Sam", "emailVerified": true},
				},
			})
		case "new@doozi.app":
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"data": map[string]any{
					"token": "tok-new",
					"user":  map[string]any{"id": "u2", "email": "new@doozi.app", "isCreator": "true"},
				},
			})
		default:
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Invalid email or password"})
		}
	})
	u.handle(signupRoute, func(w http.ResponseWriter, body map[string]any, _ *http.Request) {
		switch body["email"] {
		case "verify@doozi.app":
			writeJSON(w, http.StatusCreated, map[string]any{
				"success": true, "requires_verification": true,
				"result": map[string]any{"email": "verify@doozi.app"},
			})
		case "taken@doozi.app":
			writeJSON(w, http.StatusConflict, map[string]any{"success": false, "error": "Email already registered"})
		default:
			writeJSON(w, http.StatusCreated, map[string]any{
				"success": true, "message": "Welcome to Doozi",
				"result": map[string]any{"user_id": "u2"},
			})
		}
	})
	u.handle(meRoute, func(w http.ResponseWriter, _ map[string]any, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer tok-travels" {
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"result":  map[string]any{"user": map[string]any{"id": "u3", "email": "travels@doozi.app", "username": "samtravels"}},
			})
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok-sam" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"result":  map[string]any{"user": map[string]any{"id": "u1", "email": "sam@doozi.app", "is_creator": true}},
		})
	})
	u.handle(checkRoute, func(w http.ResponseWriter, _ map[string]any, r *http.Request) {
		switch r.URL.Query().Get("username") {
		case "free_name":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": map[string]any{"available": true}})
		case "down_name":
			writeHTML(w, http.StatusBadGateway)
		default:
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": map[string]any{"available": false}})
		}
	})
	u.handle(verifyRoute, func(w http.ResponseWriter, body map[string]any, _ *http.Request) {
		if body["otp"] != "123456" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Invalid or expired code"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Email verified"})
	})
	u.handle(forgotRoute, func(w http.ResponseWriter, _ map[string]any, _ *http.Request) {
		writeJSON(w, http.StatusAccepted, map[string]any{"success": true, "message": "Check your inbox"})
	})
	u.handle(resetRoute, func(w http.ResponseWriter, _ map[string]any, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	u.handle(resetTokRoute, func(w http.ResponseWriter, _ map[string]any, r *http.Request) {
		if r.URL.Query().Get("token") != "good" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Reset link expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "valid": true})
	})
	return u
}

func setupAuthRouter(t *testing.T, u *upstream, preset string) *gin.Engine {
	t.Helper()
	h, err := handler.NewAuthHandler(u.client(t), preset, zap.NewNop())
	if err != nil {
		t.Fatalf("NewAuthHandler: %v", err)
	}
	r, api := newRouter()
	h.Register(api)
	return r
}

// ── Login ─────────────────────────────────────────────────────────────────

func TestLogin_200(t *testing.T) {
	u := authUpstream(t)
	r := setupAuthRouter(t, u, validation.Signup)

	w := do(r, http.MethodPost, "/api/auth/login", `{"email":" sam@doozi.app ","password":"pw"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decode(t, w)
	if got["token"] != "tok-sam" || got["message"] != "Login successful" {
		t.Errorf("unexpected body: %v", got)
	}
	user := got["user"].(map[string]any)
	if user["id"] != "u1" || user["displayName"] != "Sam" || user["emailVerified"] != true {
		t.Errorf("user = %v", user)
	}
	if _, ok := got["requires_verification"]; ok {
		t.Error("verified user should not be asked to verify")
	}
	if u.body(loginRoute)["email"] != "sam@doozi.app" {
		t.Errorf("email not trimmed before forwarding: %v", u.body(loginRoute))
	}
}

func TestLogin_UnverifiedUser(t *testing.T) {
	u := authUpstream(t)
	r := setupAuthRouter(t, u, validation.Signup)

	w := do(r, http.MethodPost, "/api/auth/login", `{"email":"new@doozi.app","password":"pw"}`)
	got := decode(t, w)
	if got["requires_verification"] != true || got["email"] != "new@doozi.app" {
		t.Errorf("expected verification prompt, got %v", got)
	}
	if got["user"].(map[string]any)["isCreator"] != true {
		t.Errorf("isCreator should be coerced from string: %v", got["user"])
	}
}

func TestLogin_MissingFieldsNeverReachBackend(t *testing.T) {
	u := authUpstream(t)
	r := setupAuthRouter(t, u, validation.Signup)

	w := do(r, http.MethodPost, "/api/auth/login", `{"email":"sam@doozi.app"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	got := decode(t, w)
	if got["error"] != "Password is required" {
		t.Errorf("error = %v", got["error"])
	}
	if errs := got["errors"].(map[string]any); errs["password"] != "Password is required" {
		t.Errorf("errors = %v", errs)
	}
	if n := u.count(loginRoute); n != 0 {
		t.Errorf("backend called %d times", n)
	}
}

func TestLogin_Rejected(t *testing.T) {
	u := authUpstream(t)
	r := setupAuthRouter(t, u, validation.Signup)

	w := do(r, http.MethodPost, "/api/auth/login", `{"email":"who@doozi.app","password":"pw"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if got := decode(t, w); got["error"] != "Invalid email or password" {
		t.Errorf("error = %v", got["error"])
	}
}

func TestLogin_NonJSONBackendIsSingleError(t *testing.T) {
	u := authUpstream(t)
	r := setupAuthRouter(t, u, validation.Signup)

	w := do(r, http.MethodPost, "/api/auth/login", `{"email":"html@doozi.app","password":"pw"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}
	got := decode(t, w)
	if len(got) != 1 {
		t.Errorf("expected only an error key, got %v", got)
	}
	if got["error"] != "Backend returned 503" {
		t.Errorf("error = %v", got["error"])
	}
}

func TestLogin_BadBody(t *testing.T) {
	u := authUpstream(t)
	r := setupAuthRouter(t, u, validation.Signup)

	w := do(r, http.MethodPost, "/api/auth/login", `not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

// ── Signup ────────────────────────────────────────────────────────────────

func TestSignup(t *testing.T) {
	tests := []struct {
		name       string
		preset     string
		body       string
		wantStatus int
		wantKey    string
		wantValue  any
	}{
		{
			name:       "requires verification",
			preset:     validation.Signup,
			body:       `{"email":"verify@doozi.app","password":"Str0ng!pw","agreeToTerms":true}`,
			wantStatus: http.StatusCreated,
			wantKey:    "requires_verification",
			wantValue:  true,
		},
		{
			name:       "logs straight in",
			preset:     validation.Signup,
			body:       `{"email":"new@doozi.app","password":"Str0ng!pw","username":"New_User","agreeToTerms":true}`,
			wantStatus: http.StatusCreated,
			wantKey:    "token",
			wantValue:  "tok-new",
		},
		{
			name:       "follow-up login returns html",
			preset:     validation.Signup,
			body:       `{"email":"later@doozi.app","password":"Str0ng!pw","agreeToTerms":true}`,
			wantStatus: http.StatusCreated,
			wantKey:    "requires_verification",
			wantValue:  true,
		},
		{
			name:       "backend conflict",
			preset:     validation.Signup,
			body:       `{"email":"taken@doozi.app","password":"Str0ng!pw","agreeToTerms":true}`,
			wantStatus: http.StatusConflict,
			wantKey:    "error",
			wantValue:  "Email already registered",
		},
		{
			name:       "weak password under strict rules",
			preset:     validation.Signup,
			body:       `{"email":"new@doozi.app","password":"simple","agreeToTerms":true}`,
			wantStatus: http.StatusBadRequest,
			wantKey:    "error",
			wantValue:  "Password must contain at least one uppercase letter",
		},
		{
			name:       "simple password under embed rules",
			preset:     validation.SignupEmbed,
			body:       `{"email":"new@doozi.app","password":"simple","agreeToTerms":true}`,
			wantStatus: http.StatusCreated,
			wantKey:    "token",
			wantValue:  "tok-new",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := authUpstream(t)
			r := setupAuthRouter(t, u, tc.preset)

			w := do(r, http.MethodPost, "/api/auth/signup", tc.body)
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			if got := decode(t, w); got[tc.wantKey] != tc.wantValue {
				t.Errorf("%s = %v, want %v (body %v)", tc.wantKey, got[tc.wantKey], tc.wantValue, got)
			}
		})
	}
}

func TestSignup_LowercasesUsername(t *testing.T) {
	u := authUpstream(t)
	r := setupAuthRouter(t, u, validation.Signup)

	w := do(r, http.MethodPost, "/api/auth/signup",
		`{"email":"new@doozi.app","password":"Str0ng!pw","username":"New_User","agreeToTerms":true}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if got := u.body(signupRoute)["username"]; got != "new_user" {
		t.Errorf("username forwarded as %v", got)
	}
	got := decode(t, w)
	user := got["user"].(map[string]any)
	if user["id"] != "u2" || user["email"] != "new@doozi.app" {
		t.Errorf("user = %v", user)
	}
	if got["message"] != "Welcome to Doozi" {
		t.Errorf("message = %v", got["message"])
	}
}

// ── Session routes ────────────────────────────────────────────────────────

func TestMe(t *testing.T) {
	u := authUpstream(t)
	r := setupAuthRouter(t, u, validation.Signup)

	t.Run("no token", func(t *testing.T) {
		w := do(r, http.MethodGet, "/api/auth/me", "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
		if got := decode(t, w); got["error"] != "Not authenticated" {
			t.Errorf("error = %v", got["error"])
		}
	})
	t.Run("valid token", func(t *testing.T) {
		w := do(r, http.MethodGet, "/api/auth/me", "", "Authorization", "Bearer tok-sam")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		user := decode(t, w)["user"].(map[string]any)
		if user["id"] != "u1" || user["isCreator"] != true {
			t.Errorf("user = %v", user)
		}
	})
	t.Run("stale token", func(t *testing.T) {
		w := do(r, http.MethodGet, "/api/auth/me", "", "Authorization", "Bearer expired")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
		if got := decode(t, w); got["error"] != "Invalid token" {
			t.Errorf("error = %v", got["error"])
		}
	})
}

func TestLogout(t *testing.T) {
	r := setupAuthRouter(t, authUpstream(t), validation.Signup)
	w := do(r, http.MethodPost, "/api/auth/logout", "")
	if w.Code != http.StatusOK || decode(t, w)["message"] != "Logged out successfully" {
		t.Errorf("got %d %s", w.Code, w.Body.String())
	}
}

// ── Username availability ─────────────────────────────────────────────────

func TestCheckUsername(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantStatus  int
		wantAvail   any
		wantError   string
		wantBackend int
	}{
		{"missing", "", http.StatusBadRequest, nil, "Username is required", 0},
		{"too short", "ab", http.StatusOK, false, "Username must be at least 3 characters", 0},
		{"bad charset", "has-dash", http.StatusOK, false, "Username can only contain letters, numbers, and underscores", 0},
		{"free", "Free_Name", http.StatusOK, true, "", 1},
		{"taken", "taken_name", http.StatusOK, false, "", 1},
		{"backend down", "down_name", http.StatusInternalServerError, nil, "Backend returned 502", 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := authUpstream(t)
			r := setupAuthRouter(t, u, validation.Signup)

			w := do(r, http.MethodGet, "/api/auth/check-username?username="+tc.query, "")
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			got := decode(t, w)
			if got["available"] != tc.wantAvail {
				t.Errorf("available = %v, want %v", got["available"], tc.wantAvail)
			}
			if tc.wantError != "" && got["error"] != tc.wantError {
				t.Errorf("error = %v, want %q", got["error"], tc.wantError)
			}
			if n := u.count(checkRoute); n != tc.wantBackend {
				t.Errorf("backend calls = %d, want %d", n, tc.wantBackend)
			}
		})
	}
}

func TestCheckUsername_SignedIn(t *testing.T) {
	u := authUpstream(t)
	r := setupAuthRouter(t, u, validation.Signup)
	bearer := []string{"Authorization", "Bearer tok-travels"}

	w := do(r, http.MethodGet, "/api/auth/check-username?username=SamTravels", "", bearer...)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decode(t, w)
	if got["available"] != true || got["current"] != true || got["username"] != "samtravels" {
		t.Errorf("own username: %v", got)
	}
	if n := u.count(checkRoute); n != 0 {
		t.Errorf("own username reached the backend %d times", n)
	}

	w = do(r, http.MethodGet, "/api/auth/check-username?username=free_name", "", bearer...)
	if got := decode(t, w); got["available"] != true || got["current"] != nil {
		t.Errorf("other username: %v", got)
	}
	if n := u.count(checkRoute); n != 1 {
		t.Fatalf("backend calls = %d, want 1", n)
	}
	if auth := u.header(checkRoute).Get("Authorization"); auth != "Bearer tok-travels" {
		t.Errorf("forwarded Authorization = %q", auth)
	}
}

func TestCheckUsername_StaleTokenStillChecks(t *testing.T) {
	u := authUpstream(t)
	r := setupAuthRouter(t, u, validation.Signup)

	w := do(r, http.MethodGet, "/api/auth/check-username?username=free_name", "", "Authorization", "Bearer expired")
	if got := decode(t, w); w.Code != http.StatusOK || got["available"] != true {
		t.Errorf("stale token: %d %v", w.Code, got)
	}
	if n := u.count(checkRoute); n != 1 {
		t.Errorf("backend calls = %d, want 1", n)
	}
}

// ── Email verification and password reset ────────────────────────────────

func TestVerifyEmail(t *testing.T) {
	u := authUpstream(t)
	r := setupAuthRouter(t, u, validation.Signup)

	w := do(r, http.MethodPost, "/api/auth/verify-email", `{"email":"sam@doozi.app","otp":"12345"}`)
	if w.Code != http.StatusBadRequest || decode(t, w)["error"] != "Verification code must be 6 digits" {
		t.Errorf("short code: %d %s", w.Code, w.Body.String())
	}
	if u.count(verifyRoute) != 0 {
		t.Error("malformed code reached the backend")
	}

	w = do(r, http.MethodPost, "/api/auth/verify-email", `{"email":"sam@doozi.app","otp":"654321"}`)
	if w.Code != http.StatusBadRequest || decode(t, w)["error"] != "Invalid or expired code" {
		t.Errorf("wrong code: %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodPost, "/api/auth/verify-email", `{"email":"sam@doozi.app","otp":"123456"}`)
	if w.Code != http.StatusOK || decode(t, w)["message"] != "Email verified" {
		t.Errorf("good code: %d %s", w.Code, w.Body.String())
	}
}

func TestForgotPassword_PassesStatusThrough(t *testing.T) {
	u := authUpstream(t)
	r := setupAuthRouter(t, u, validation.Signup)

	w := do(r, http.MethodPost, "/api/auth/forgot-password", `{"email":"not-an-email"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	w = do(r, http.MethodPost, "/api/auth/forgot-password", `{"email":"sam@doozi.app"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected backend status 202, got %d", w.Code)
	}
}

func TestResetPassword(t *testing.T) {
	u := authUpstream(t)
	r := setupAuthRouter(t, u, validation.Signup)

	w := do(r, http.MethodPost, "/api/auth/reset-password",
		`{"token":"good","password":"longenough","confirmPassword":"different"}`)
	if w.Code != http.StatusBadRequest || decode(t, w)["error"] != "Passwords do not match" {
		t.Errorf("mismatch: %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodPost, "/api/auth/reset-password",
		`{"token":"good","password":"longenough","confirmPassword":"longenough"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := u.body(resetRoute); got["token"] != "good" || got["password"] != "longenough" {
		t.Errorf("forwarded body = %v", got)
	}
	if _, sent := u.body(resetRoute)["confirmPassword"]; sent {
		t.Error("confirmation should not be forwarded")
	}
}

func TestVerifyResetToken(t *testing.T) {
	u := authUpstream(t)
	r := setupAuthRouter(t, u, validation.Signup)

	if w := do(r, http.MethodGet, "/api/auth/reset-password", ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing token: expected 400, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/auth/reset-password?token=stale", ""); w.Code != http.StatusBadRequest {
		t.Errorf("stale token: expected 400, got %d", w.Code)
	}
	w := do(r, http.MethodGet, "/api/auth/reset-password?token=good", "")
	if w.Code != http.StatusOK || decode(t, w)["valid"] != true {
		t.Errorf("good token: %d %s", w.Code, w.Body.String())
	}
}
