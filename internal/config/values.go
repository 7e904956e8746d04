package config

import (
	"time"
)

// The accessors below turn validated string settings into typed values. They
// fall back to the built-in default when a value does not parse, which only
// happens for a Config that skipped Validate.

// ReadHeaderTimeoutDuration returns server.read_header_timeout.
func (s *ServerConfig) ReadHeaderTimeoutDuration() time.Duration {
	return durationOr(s.ReadHeaderTimeout, defaultReadHeaderTimeout)
}

// ShutdownTimeoutDuration returns server.shutdown_timeout.
func (s *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return durationOr(s.ShutdownTimeout, defaultShutdownTimeout)
}

// MaxUploadBytes returns server.max_upload_size in bytes.
func (s *ServerConfig) MaxUploadBytes() int64 {
	n, err := ParseSize(s.MaxUploadSize)
	if err != nil || n <= 0 {
		n, _ = ParseSize(defaultMaxUploadSize)
	}

	return n
}

// TokenTTLDuration returns auth.token_ttl.
func (a *AuthConfig) TokenTTLDuration() time.Duration {
	return durationOr(a.TokenTTL, defaultTokenTTL)
}

// RequestTimeoutDuration returns google.request_timeout. Zero disables the
// per-request timeout.
func (g *GoogleConfig) RequestTimeoutDuration() time.Duration {
	if g.RequestTimeout == "0" {
		return 0
	}

	return durationOr(g.RequestTimeout, defaultRequestTimeout)
}

// TokenPath returns the credential cache path, expanding a leading "~/".
func (g *GoogleConfig) TokenPath() string {
	if g.TokenFile == "" {
		return DefaultTokenPath()
	}

	return expandTilde(g.TokenFile)
}

// DBPath returns the task ledger database path, expanding a leading "~/".
func (t *TasksConfig) DBPath() string {
	if t.LedgerPath == "" {
		return DefaultLedgerPath()
	}

	return expandTilde(t.LedgerPath)
}

func durationOr(value, fallback string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}

	return d
}
