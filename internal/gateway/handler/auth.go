package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/doozitravel/gateway/internal/backend"
	"github.com/doozitravel/gateway/internal/reconcile"
	"github.com/doozitravel/gateway/pkg/availability"
	"github.com/doozitravel/gateway/pkg/validation"
)

// authBackend is the subset of *backend.Client used by AuthHandler.
type authBackend interface {
	Login(ctx context.Context, cr backend.Credentials) (*backend.Response, error)
	Signup(ctx context.Context, r backend.SignupRequest) (*backend.Response, error)
	Me(ctx context.Context, token string) (*backend.Response, error)
	UpdateMe(ctx context.Context, token string, fields map[string]any) (*backend.Response, error)
	CheckUsername(ctx context.Context, token, username string) (bool, error)
	VerifyEmail(ctx context.Context, email, otp string) (*backend.Response, error)
	ResendOTP(ctx context.Context, email string) (*backend.Response, error)
	ForgotPassword(ctx context.Context, email string) (*backend.Response, error)
	ResetPassword(ctx context.Context, token, password string) (*backend.Response, error)
	VerifyResetToken(ctx context.Context, token string) (*backend.Response, error)
}

const verifyEmailMessage = "Account created! Please verify your email."

// AuthHandler proxies account flows to the backend after validating them
// locally.
type AuthHandler struct {
	backend authBackend
	logger  *zap.Logger

	login         *validation.Set
	signup        *validation.Set
	verifyEmail   *validation.Set
	resendOTP     *validation.Set
	forgot        *validation.Set
	passwordReset *validation.Set
	username      *validation.Set
}

// NewAuthHandler creates an AuthHandler. signupPreset selects the signup
// rules (validation.Signup or validation.SignupEmbed).
func NewAuthHandler(b authBackend, signupPreset string, logger *zap.Logger) (*AuthHandler, error) {
	signup, err := validation.Preset(signupPreset)
	if err != nil {
		return nil, fmt.Errorf("signup rules: %w", err)
	}
	return &AuthHandler{
		backend:       b,
		logger:        logger,
		login:         validation.MustPreset(validation.Login),
		signup:        signup,
		verifyEmail:   validation.MustPreset(validation.VerifyEmail),
		resendOTP:     validation.MustPreset(validation.ResendOTP),
		forgot:        validation.MustPreset(validation.ForgotPassword),
		passwordReset: validation.MustPreset(validation.PasswordReset),
		username:      validation.MustPreset(validation.Username),
	}, nil
}

// Register registers AuthHandler routes on the given router group.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	auth.POST("/login", h.Login)
	auth.POST("/signup", h.Signup)
	auth.POST("/logout", h.Logout)
	auth.GET("/me", h.Me)
	auth.PUT("/me", h.UpdateMe)
	auth.GET("/check-username", h.CheckUsername)
	auth.POST("/verify-email", h.VerifyEmail)
	auth.POST("/resend-otp", h.ResendOTP)
	auth.POST("/forgot-password", h.ForgotPassword)
	auth.POST("/reset-password", h.ResetPassword)
	auth.GET("/reset-password", h.VerifyResetToken)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	raw, ok := bindValues(c)
	if !ok {
		return
	}
	v, ok := applyRules(c, h.login, raw)
	if !ok {
		return
	}

	resp, err := h.backend.Login(c.Request.Context(), backend.Credentials{
		Email:    str(v, "email"),
		Password: str(v, "password"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if e := resp.Err(http.StatusUnauthorized, "Invalid email or password"); e != nil {
		respondError(c, e)
		return
	}

	user, token := signedIn(resp)
	if !user.Found() || token == "" {
		h.logger.Warn("login reply carried no user or token", zap.String("request_id", RequestIDFrom(c)))
		c.JSON(http.StatusBadGateway, gin.H{"error": backend.GenericMessage})
		return
	}
	requestSession(c, h.backend, h.logger).SignIn(token, user)

	out := gin.H{"user": user.Payload(), "token": token, "message": "Login successful"}
	if !user.EmailVerified {
		out["requires_verification"] = true
		out["email"] = user.Email
	}
	c.JSON(http.StatusOK, out)
}

// Signup handles POST /auth/signup. When the backend does not ask for email
// verification the new account is logged in straight away; if that login
// fails the client is told to verify instead.
func (h *AuthHandler) Signup(c *gin.Context) {
	raw, ok := bindValues(c)
	if !ok {
		return
	}
	v, ok := applyRules(c, h.signup, raw)
	if !ok {
		return
	}
	email, password := str(v, "email"), str(v, "password")

	ctx := c.Request.Context()
	resp, err := h.backend.Signup(ctx, backend.SignupRequest{
		Email:    email,
		Password: password,
		Username: str(v, "username"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if e := resp.Err(http.StatusBadRequest, "Signup failed"); e != nil {
		respondError(c, e)
		return
	}

	if cast.ToBool(resp.Body["requires_verification"]) {
		addr := email
		if result, ok := resp.Body["result"].(map[string]any); ok {
			if s := cast.ToString(result["email"]); s != "" {
				addr = s
			}
		}
		msg := cast.ToString(resp.Body["message"])
		if msg == "" {
			msg = verifyEmailMessage
		}
		verificationPending(c, msg, addr)
		return
	}

	lresp, err := h.backend.Login(ctx, backend.Credentials{Email: email, Password: password})
	if err != nil || !lresp.OK() {
		h.logger.Warn("login after signup failed", zap.String("email", email), zap.Error(err))
		verificationPending(c, verifyEmailMessage, email)
		return
	}

	// The signup reply describes the new account best; the login reply
	// carries the token.
	loginUser, token := signedIn(lresp)
	user := reconcile.ReconcileUser(resp.Body)
	if !user.Found() {
		user = loginUser
	}
	if user.Email == "" {
		user.Email = email
	}
	if token == "" || !user.Found() {
		verificationPending(c, verifyEmailMessage, email)
		return
	}
	requestSession(c, h.backend, h.logger).SignIn(token, user)

	msg := cast.ToString(resp.Body["message"])
	if msg == "" {
		msg = "Account created successfully"
	}
	c.JSON(http.StatusCreated, gin.H{"user": user.Payload(), "token": token, "message": msg})
}

// Logout handles POST /auth/logout. Tokens are not tracked server side.
func (h *AuthHandler) Logout(c *gin.Context) {
	requestSession(c, h.backend, h.logger).Clear()
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	s := requestSession(c, h.backend, h.logger)
	if !s.Authenticated() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	u, err := s.Refresh(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u.Payload()})
}

// UpdateMe handles PUT /auth/me. Only the username can be changed.
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	s := requestSession(c, h.backend, h.logger)
	if !s.Authenticated() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	raw, ok := bindValues(c)
	if !ok {
		return
	}
	v, ok := applyRules(c, h.username, raw)
	if !ok {
		return
	}

	resp, err := h.backend.UpdateMe(c.Request.Context(), s.Token(), map[string]any{"username": str(v, "username")})
	if err != nil {
		respondError(c, err)
		return
	}
	if e := resp.Err(http.StatusBadRequest, "Failed to update profile"); e != nil {
		respondError(c, e)
		return
	}
	if u := reconcile.ReconcileUser(resp.Body); u.Found() {
		c.JSON(http.StatusOK, gin.H{"user": u.Payload()})
		return
	}
	c.JSON(http.StatusOK, resp.Body)
}

// CheckUsername handles GET /auth/check-username?username=. Malformed
// candidates are answered locally without asking the backend. A signed-in
// caller's own username is reported as available without asking either.
func (h *AuthHandler) CheckUsername(c *gin.Context) {
	candidate := strings.TrimSpace(c.Query("username"))
	if candidate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username is required"})
		return
	}

	ctx := c.Request.Context()
	token := requestSession(c, h.backend, h.logger).Token()
	current := h.currentUsername(c)

	res := availability.Check(ctx, usernameChecker{backend: h.backend, token: token}, candidate, current)
	switch res.State {
	case availability.Idle:
		c.JSON(http.StatusOK, gin.H{"success": true, "available": true, "username": res.Username, "current": true})
	case availability.Invalid:
		c.JSON(http.StatusOK, gin.H{"success": true, "available": false, "username": res.Username, "error": res.Message})
	case availability.Available:
		c.JSON(http.StatusOK, gin.H{"success": true, "available": true, "username": res.Username})
	case availability.Taken:
		c.JSON(http.StatusOK, gin.H{"success": true, "available": false, "username": res.Username, "message": res.Message})
	default:
		respondError(c, res.Err)
	}
}

// currentUsername returns the signed-in caller's username, or "" when the
// request is anonymous or the token no longer resolves.
func (h *AuthHandler) currentUsername(c *gin.Context) string {
	s := requestSession(c, h.backend, h.logger)
	if !s.Authenticated() {
		return ""
	}
	u, ok := s.User()
	if !ok {
		var err error
		if u, err = s.Refresh(c.Request.Context()); err != nil {
			h.logger.Debug("check-username: session did not resolve", zap.Error(err))
			return ""
		}
	}
	if u.Username == nil {
		return ""
	}
	return *u.Username
}

// usernameChecker binds the caller's bearer to availability checks.
type usernameChecker struct {
	backend authBackend
	token   string
}

func (u usernameChecker) CheckUsername(ctx context.Context, username string) (bool, error) {
	return u.backend.CheckUsername(ctx, u.token, username)
}

// VerifyEmail handles POST /auth/verify-email.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	raw, ok := bindValues(c)
	if !ok {
		return
	}
	v, ok := applyRules(c, h.verifyEmail, raw)
	if !ok {
		return
	}
	resp, err := h.backend.VerifyEmail(c.Request.Context(), str(v, "email"), str(v, "otp"))
	h.relay(c, resp, err, "Verification failed")
}

// ResendOTP handles POST /auth/resend-otp.
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	raw, ok := bindValues(c)
	if !ok {
		return
	}
	v, ok := applyRules(c, h.resendOTP, raw)
	if !ok {
		return
	}
	resp, err := h.backend.ResendOTP(c.Request.Context(), str(v, "email"))
	h.relay(c, resp, err, "Failed to resend OTP")
}

// ForgotPassword handles POST /auth/forgot-password. The backend's status
// and body are passed through unchanged.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	raw, ok := bindValues(c)
	if !ok {
		return
	}
	v, ok := applyRules(c, h.forgot, raw)
	if !ok {
		return
	}
	resp, err := h.backend.ForgotPassword(c.Request.Context(), str(v, "email"))
	passThrough(c, resp, err)
}

// ResetPassword handles POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	raw, ok := bindValues(c)
	if !ok {
		return
	}
	v, ok := applyRules(c, h.passwordReset, raw)
	if !ok {
		return
	}
	resp, err := h.backend.ResetPassword(c.Request.Context(), str(v, "token"), str(v, "password"))
	passThrough(c, resp, err)
}

// VerifyResetToken handles GET /auth/reset-password?token=.
func (h *AuthHandler) VerifyResetToken(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reset token is missing"})
		return
	}
	resp, err := h.backend.VerifyResetToken(c.Request.Context(), token)
	passThrough(c, resp, err)
}

// relay answers with the backend body on success and a single error
// otherwise.
func (h *AuthHandler) relay(c *gin.Context, resp *backend.Response, err error, fallback string) {
	if err != nil {
		respondError(c, err)
		return
	}
	if e := resp.Err(http.StatusBadRequest, fallback); e != nil {
		respondError(c, e)
		return
	}
	c.JSON(http.StatusOK, resp.Body)
}

func passThrough(c *gin.Context, resp *backend.Response, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(resp.Status, resp.Body)
}

func verificationPending(c *gin.Context, msg, email string) {
	c.JSON(http.StatusCreated, gin.H{
		"success":               true,
		"message":               msg,
		"requires_verification": true,
		"email":                 email,
	})
}

// signedIn extracts the user and token from a login reply.
func signedIn(resp *backend.Response) (reconcile.User, string) {
	user := reconcile.ReconcileUser(resp.Body)
	token := ""
	if data := resp.Data(); data != nil {
		token = cast.ToString(data["token"])
	}
	if token == "" {
		token = cast.ToString(resp.Body["token"])
	}
	return user, token
}
