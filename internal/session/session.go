// Package session holds the caller's bearer token and reconciled user for
// the lifetime of one owner: a single HTTP request on the gateway, or the
// whole process in the CLI. There is no global session.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/doozitravel/gateway/internal/backend"
	"github.com/doozitravel/gateway/internal/reconcile"
)

var (
	// ErrNoToken is returned by calls that need a bearer token when the
	// session has none.
	ErrNoToken = errors.New("not authenticated")

	// ErrNoUser is returned when the backend answered but carried no user.
	ErrNoUser = errors.New("backend returned no user")
)

// userIDClaims are tried in order when reading a user id out of a token.
var userIDClaims = []string{"userId", "user_id", "id", "sub"}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// UserIDFromToken reads a user id out of a JWT-shaped token without
// verifying it. It is a shortcut that saves a round trip, never an
// authorization decision; the backend still checks the token on every call.
func UserIDFromToken(token string) (string, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", false
	}
	for _, k := range userIDClaims {
		if s, err := cast.ToStringE(claims[k]); err == nil && s != "" {
			return s, true
		}
	}
	return "", false
}

// Fetcher returns the account behind a token. *backend.Client satisfies it.
type Fetcher interface {
	Me(ctx context.Context, token string) (*backend.Response, error)
}

// Session is one owner's view of who is signed in.
type Session struct {
	fetcher Fetcher
	logger  *zap.Logger

	mu    sync.RWMutex
	token string
	user  *reconcile.User
}

// New creates an empty session.
func New(f Fetcher, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{fetcher: f, logger: logger}
}

// FromRequest creates a session carrying the request's bearer token, if any.
func FromRequest(r *http.Request, f Fetcher, logger *zap.Logger) *Session {
	s := New(f, logger)
	if token, ok := BearerToken(r.Header.Get("Authorization")); ok {
		s.token = token
	}
	return s
}

// SignIn stores a freshly issued token and its user.
func (s *Session) SignIn(token string, u reconcile.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = &u
}

// Clear forgets the token and user.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}

// Token returns the bearer token, or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// User returns the cached user, if one has been loaded.
func (s *Session) User() (reconcile.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return reconcile.User{}, false
	}
	return *s.user, true
}

// Refresh reloads the user from the backend. Any failure clears the session
// and is returned as a *backend.Error.
func (s *Session) Refresh(ctx context.Context) (reconcile.User, error) {
	token := s.Token()
	if token == "" {
		return reconcile.User{}, &backend.Error{Status: http.StatusUnauthorized, Message: "Not authenticated", Cause: ErrNoToken}
	}

	resp, err := s.fetcher.Me(ctx, token)
	if err != nil {
		s.Clear()
		return reconcile.User{}, backend.AsError(err)
	}
	if e := resp.Err(http.StatusUnauthorized, "Failed to get user"); e != nil {
		s.Clear()
		return reconcile.User{}, e
	}

	u := reconcile.ReconcileUser(resp.Body)
	if !u.Found() {
		s.Clear()
		return reconcile.User{}, &backend.Error{Status: http.StatusUnauthorized, Message: "Failed to get user", Cause: ErrNoUser}
	}

	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	return u, nil
}

// UserID resolves the signed-in user's id: first from the token itself,
// then from the cached user, then from the backend.
func (s *Session) UserID(ctx context.Context) (string, error) {
	token := s.Token()
	if token == "" {
		return "", &backend.Error{Status: http.StatusUnauthorized, Message: "Authentication required", Cause: ErrNoToken}
	}
	if id, ok := UserIDFromToken(token); ok {
		return id, nil
	}
	if u, ok := s.User(); ok && u.Found() {
		return u.ID, nil
	}

	s.logger.Debug("token carries no user id, asking backend")
	u, err := s.Refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve user id: %w", err)
	}
	return u.ID, nil
}
