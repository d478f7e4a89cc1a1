// Package config loads gateway settings from gateway.yaml and the
// environment. Environment variables use upper-case keys with "." replaced
// by "_", e.g. BACKEND_BASE_URL.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/doozitravel/gateway/internal/email"
	"github.com/doozitravel/gateway/pkg/validation"
)

// Config is the typed view of every setting the gateway reads.
type Config struct {
	Server struct {
		Port         int
		CORSOrigins  []string
		RateLimitRPS int
		MaxBodyBytes int64
	}
	Backend struct {
		BaseURL    string
		Timeout    time.Duration
		HealthPath string
	}
	Health struct {
		Interval      time.Duration
		FailThreshold int
	}
	Validation struct {
		SignupPreset  string
		CreatorPreset string
	}
	Email email.SMTPConfig
	Log   struct {
		Development bool
	}
}

// SetDefaults registers every key with its default so that environment
// overrides are picked up even without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("backend.base_url", "http://localhost:8081")
	v.SetDefault("backend.timeout", "15s")
	v.SetDefault("backend.health_path", "/")
	v.SetDefault("health.interval", "30s")
	v.SetDefault("health.fail_threshold", 3)
	v.SetDefault("validation.signup_preset", validation.Signup)
	v.SetDefault("validation.creator_preset", validation.CreatorQuick)
	v.SetDefault("email.smtp_host", "")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.smtp_username", "")
	v.SetDefault("email.smtp_password", "")
	v.SetDefault("email.from_address", "noreply@doozi.app")
	v.SetDefault("log.development", false)
}

// Load reads gateway.yaml from configs/ or the working directory, layers
// the environment on top, and validates the result. A missing file is not
// an error.
func Load(v *viper.Viper, logger *zap.Logger) (*Config, error) {
	v.SetConfigName("gateway")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// FromViper copies settings out of v without validating them.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{}
	cfg.Server.Port = v.GetInt("server.port")
	cfg.Server.CORSOrigins = v.GetStringSlice("server.cors_origins")
	cfg.Server.RateLimitRPS = v.GetInt("server.rate_limit_rps")
	cfg.Server.MaxBodyBytes = v.GetInt64("server.max_body_bytes")
	cfg.Backend.BaseURL = strings.TrimRight(v.GetString("backend.base_url"), "/")
	cfg.Backend.Timeout = v.GetDuration("backend.timeout")
	cfg.Backend.HealthPath = v.GetString("backend.health_path")
	cfg.Health.Interval = v.GetDuration("health.interval")
	cfg.Health.FailThreshold = v.GetInt("health.fail_threshold")
	cfg.Validation.SignupPreset = v.GetString("validation.signup_preset")
	cfg.Validation.CreatorPreset = v.GetString("validation.creator_preset")
	cfg.Email = email.SMTPConfig{
		Host:     v.GetString("email.smtp_host"),
		Port:     v.GetInt("email.smtp_port"),
		Username: v.GetString("email.smtp_username"),
		Password: v.GetString("email.smtp_password"),
		From:     v.GetString("email.from_address"),
	}
	cfg.Log.Development = v.GetBool("log.development")
	return cfg
}
