package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/spf13/cast"
)

const (
	usersPrefix     = "/new/app/users"
	campaignsPrefix = "/new/business-campaigns"
)

// Credentials is the login body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the signup body. Username is sent only when chosen.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
}

// Login exchanges credentials for a user and token.
func (c *Client) Login(ctx context.Context, cr Credentials) (*Response, error) {
	return c.Do(ctx, "login", http.MethodPost, usersPrefix+"/login", "", cr)
}

// Signup creates an account.
func (c *Client) Signup(ctx context.Context, r SignupRequest) (*Response, error) {
	return c.Do(ctx, "signup", http.MethodPost, usersPrefix+"/signup", "", r)
}

// Me returns the account behind token.
func (c *Client) Me(ctx context.Context, token string) (*Response, error) {
	return c.Do(ctx, "me", http.MethodGet, usersPrefix+"/protected/me", token, nil)
}

// UpdateMe changes profile fields of the account behind token.
func (c *Client) UpdateMe(ctx context.Context, token string, fields map[string]any) (*Response, error) {
	return c.Do(ctx, "update_me", http.MethodPut, usersPrefix+"/protected/me", token, fields)
}

// CheckUsername asks whether username is free. token is the caller's bearer,
// or "" when signed out. Availability is read from result.available, then
// available, and is false when neither is present.
func (c *Client) CheckUsername(ctx context.Context, token, username string) (bool, error) {
	q := url.Values{"username": {username}}
	resp, err := c.Do(ctx, "check_username", http.MethodGet, usersPrefix+"/check-username?"+q.Encode(), token, nil)
	if err != nil {
		return false, err
	}
	if e := resp.Err(http.StatusBadRequest, "Failed to check username"); e != nil {
		return false, e
	}
	if result, ok := resp.Body["result"].(map[string]any); ok {
		if v, present := result["available"]; present && v != nil {
			return cast.ToBool(v), nil
		}
	}
	if v, present := resp.Body["available"]; present && v != nil {
		return cast.ToBool(v), nil
	}
	return false, nil
}

// VerifyEmail submits the one-time code mailed at signup.
func (c *Client) VerifyEmail(ctx context.Context, email, otp string) (*Response, error) {
	return c.Do(ctx, "verify_email", http.MethodPost, usersPrefix+"/verify-email", "",
		map[string]string{"email": email, "otp": otp})
}

// ResendOTP mails a fresh verification code.
func (c *Client) ResendOTP(ctx context.Context, email string) (*Response, error) {
	return c.Do(ctx, "resend_otp", http.MethodPost, usersPrefix+"/resend-otp", "",
		map[string]string{"email": email})
}

// ForgotPassword starts a password reset.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*Response, error) {
	return c.Do(ctx, "forgot_password", http.MethodPost, usersPrefix+"/forgot-password", "",
		map[string]string{"email": email})
}

// ResetPassword completes a password reset.
func (c *Client) ResetPassword(ctx context.Context, token, password string) (*Response, error) {
	return c.Do(ctx, "reset_password", http.MethodPost, usersPrefix+"/reset-password", "",
		map[string]string{"token": token, "password": password})
}

// VerifyResetToken checks a reset link before the form is shown.
func (c *Client) VerifyResetToken(ctx context.Context, token string) (*Response, error) {
	q := url.Values{"token": {token}}
	return c.Do(ctx, "verify_reset_token", http.MethodGet, usersPrefix+"/verify-reset-token?"+q.Encode(), "", nil)
}

// SubmitApplication files a creator application for the account behind token.
func (c *Client) SubmitApplication(ctx context.Context, token string, payload map[string]any) (*Response, error) {
	return c.Do(ctx, "submit_application", http.MethodPost, usersPrefix+"/application", token, payload)
}

// ApplicationStatus returns the latest application of userID.
func (c *Client) ApplicationStatus(ctx context.Context, token, userID string) (*Response, error) {
	return c.Do(ctx, "application_status", http.MethodGet,
		usersPrefix+"/application/status/"+url.PathEscape(userID), token, nil)
}

// SubmitCampaign files a business campaign. token may be empty.
func (c *Client) SubmitCampaign(ctx context.Context, token string, payload any) (*Response, error) {
	return c.Do(ctx, "submit_campaign", http.MethodPost, campaignsPrefix, token, payload)
}
