package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// Validation range constants.
const (
	minPort              = 1
	maxPort              = 65535
	minReadHeaderTimeout = 1 * time.Second
	minShutdownTimeout   = 1 * time.Second
	minTokenTTL          = 1 * time.Minute
	minRequestTimeout    = 1 * time.Second
	minUploadBytes       = 1
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateAuth(&cfg.Auth)...)
	errs = append(errs, validateGoogle(&cfg.Google)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

func validateServer(s *ServerConfig) []error {
	var errs []error

	errs = append(errs, validatePort("port", s.Port)...)
	errs = append(errs, validatePort("docker_port", s.DockerPort)...)
	errs = append(errs, validateDurationMin("read_header_timeout", s.ReadHeaderTimeout, minReadHeaderTimeout)...)
	errs = append(errs, validateDurationMin("shutdown_timeout", s.ShutdownTimeout, minShutdownTimeout)...)

	n, err := ParseSize(s.MaxUploadSize)
	if err != nil {
		errs = append(errs, fmt.Errorf("max_upload_size: %w", err))
	} else if n < minUploadBytes {
		errs = append(errs, fmt.Errorf("max_upload_size: must be positive, got %q", s.MaxUploadSize))
	}

	return errs
}

func validatePort(field string, port int) []error {
	if port < minPort || port > maxPort {
		return []error{fmt.Errorf("%s: must be between %d and %d, got %d", field, minPort, maxPort, port)}
	}

	return nil
}

var validAlgorithms = map[string]bool{
	"HS256": true,
	"HS384": true,
	"HS512": true,
}

func validateAuth(a *AuthConfig) []error {
	var errs []error

	if !validAlgorithms[a.Algorithm] {
		errs = append(errs, fmt.Errorf("algorithm: must be one of HS256, HS384, HS512; got %q", a.Algorithm))
	}

	if a.RequireToken && a.SecretKey == "" {
		errs = append(errs, errors.New("secret_key: must not be empty when require_token is set"))
	}

	errs = append(errs, validateDurationMin("token_ttl", a.TokenTTL, minTokenTTL)...)

	return errs
}

func validateGoogle(g *GoogleConfig) []error {
	var errs []error

	if g.RequestTimeout != "0" {
		errs = append(errs, validateDurationMin("request_timeout", g.RequestTimeout, minRequestTimeout)...)
	}

	if g.APIEndpoint != "" {
		u, err := url.Parse(g.APIEndpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("api_endpoint: must be an absolute URL, got %q", g.APIEndpoint))
		}
	}

	return errs
}

func validateDuration(field, value string, minimum time.Duration) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}

	if d < minimum {
		return fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)
	}

	return nil
}

func validateDurationMin(field, value string, minimum time.Duration) []error {
	if err := validateDuration(field, value, minimum); err != nil {
		return []error{err}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateLogLevel(l.LogLevel)...)
	errs = append(errs, validateLogFormat(l.LogFormat)...)

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("log_format: must be one of auto, text, json; got %q", format)}
	}

	return nil
}

// WarnInsecure logs settings that are valid but unsafe to run with.
func WarnInsecure(cfg *Config, logger *slog.Logger) {
	if cfg.Auth.RequireToken && cfg.Auth.SecretKey == defaultSecretKey {
		logger.Warn("auth.require_token is set but secret_key is the built-in default; set SECRET_KEY")
	}

	if cfg.Google.ClientID == "" {
		logger.Warn("google.client_id is empty; login will fail until GOOGLE_CLIENT_ID is set")
	}
}
