package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/doozitravel/gateway/pkg/validation"
)

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535"))
	}
	if c.Server.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit_rps must not be negative"))
	}
	if c.Server.MaxBodyBytes < 1024 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes must be at least 1KB"))
	}

	if c.Backend.BaseURL == "" {
		errs = append(errs, fmt.Errorf("backend.base_url is required"))
	} else if u, err := url.Parse(c.Backend.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("backend.base_url is not a valid URL: %w", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Errorf("backend.base_url must be http or https"))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("backend.timeout must be positive"))
	}

	if !strings.HasPrefix(c.Backend.HealthPath, "/") {
		errs = append(errs, fmt.Errorf("backend.health_path must start with /"))
	}
	if c.Health.Interval < time.Second {
		errs = append(errs, fmt.Errorf("health.interval must be at least 1s"))
	}
	if c.Health.FailThreshold < 1 {
		errs = append(errs, fmt.Errorf("health.fail_threshold must be at least 1"))
	}

	if !slices.Contains([]string{validation.Signup, validation.SignupEmbed}, c.Validation.SignupPreset) {
		errs = append(errs, fmt.Errorf("validation.signup_preset must be %q or %q",
			validation.Signup, validation.SignupEmbed))
	}
	if !slices.Contains([]string{validation.CreatorQuick, validation.CreatorFull}, c.Validation.CreatorPreset) {
		errs = append(errs, fmt.Errorf("validation.creator_preset must be %q or %q",
			validation.CreatorQuick, validation.CreatorFull))
	}


	if c.Email.Host != "" {
		if c.Email.From == "" {
			errs = append(errs, fmt.Errorf("email.from_address is required when email.smtp_host is set"))
		}
		if c.Email.Port < 1 || c.Email.Port > 65535 {
			errs = append(errs, fmt.Errorf("email.smtp_port must be between 1 and 65535"))
		}
	}

	return errors.Join(errs...)
}
