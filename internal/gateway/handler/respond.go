package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/doozitravel/gateway/internal/backend"
	"github.com/doozitravel/gateway/internal/session"
	"github.com/doozitravel/gateway/pkg/validation"
)

const sessionKey = "doozi.session"

// requestSession returns the request's session, creating it from the
// Authorization header on first use.
func requestSession(c *gin.Context, f session.Fetcher, logger *zap.Logger) *session.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*session.Session); ok {
			return s
		}
	}
	s := session.FromRequest(c.Request, f, logger)
	c.Set(sessionKey, s)
	return s
}

// bindValues decodes a JSON object body into form values.
func bindValues(c *gin.Context) (validation.Values, bool) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil || raw == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must be a JSON object"})
		return nil, false
	}
	return validation.Values(raw), true
}

// applyRules normalizes and validates raw, answering 400 on failure.
func applyRules(c *gin.Context, rules *validation.Set, raw validation.Values) (validation.Values, bool) {
	values, errs := rules.Apply(raw)
	if err := rules.Err(errs); err != nil {
		respondError(c, err)
		return nil, false
	}
	return values, true
}

// respondError writes the single error shape a client sees. Validation
// failures also carry the per-field map.
func respondError(c *gin.Context, err error) {
	var invalid *validation.InvalidError
	if errors.As(err, &invalid) {
		RecordValidationFailure(invalid.Preset, invalid.Errors)
		c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Message, "errors": invalid.Errors})
		return
	}
	be := backend.AsError(err)
	c.JSON(be.Status, gin.H{"error": be.Message})
}

// str reads a normalized form value as a string.
func str(v validation.Values, key string) string {
	if v[key] == nil {
		return ""
	}
	return cast.ToString(v[key])
}
