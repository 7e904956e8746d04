package config

import (
	"fmt"
	"io"
)

// redacted replaces secret values in RenderEffective output.
const redacted = "(set, hidden)"

// RenderEffective writes the resolved configuration as a human-readable
// summary to w, with secrets hidden. This powers "config show", giving
// operators visibility into the values left after every override layer.
func RenderEffective(cfg *Config, path string, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", path)

	renderServerSection(ew, &cfg.Server)
	renderAuthSection(ew, &cfg.Auth)
	renderGoogleSection(ew, &cfg.Google)
	renderTasksSection(ew, &cfg.Tasks)
	renderLoggingSection(ew, &cfg.Logging)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, so callers can chain
// printf calls without checking each one individually.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func secret(value string) string {
	if value == "" {
		return ""
	}

	return redacted
}

func renderServerSection(ew *errWriter, s *ServerConfig) {
	ew.printf("[server]\n")
	ew.printf("  port                = %d\n", s.Port)
	ew.printf("  docker_port         = %d\n", s.DockerPort)
	ew.printf("  read_header_timeout = %q\n", s.ReadHeaderTimeout)
	ew.printf("  shutdown_timeout    = %q\n", s.ShutdownTimeout)
	ew.printf("  max_upload_size     = %q\n", s.MaxUploadSize)
	ew.printf("\n")
}

func renderAuthSection(ew *errWriter, a *AuthConfig) {
	ew.printf("[auth]\n")
	ew.printf("  secret_key    = %q\n", secret(a.SecretKey))
	ew.printf("  algorithm     = %q\n", a.Algorithm)
	ew.printf("  require_token = %t\n", a.RequireToken)
	ew.printf("  token_ttl     = %q\n", a.TokenTTL)
	ew.printf("\n")
}

func renderGoogleSection(ew *errWriter, g *GoogleConfig) {
	ew.printf("[google]\n")
	ew.printf("  client_id       = %q\n", g.ClientID)
	ew.printf("  client_secret   = %q\n", secret(g.ClientSecret))
	ew.printf("  token_file      = %q\n", g.TokenPath())

	if g.APIEndpoint != "" {
		ew.printf("  api_endpoint    = %q\n", g.APIEndpoint)
	}

	ew.printf("  request_timeout = %q\n", g.RequestTimeout)
	ew.printf("\n")
}

func renderTasksSection(ew *errWriter, t *TasksConfig) {
	ew.printf("[tasks]\n")
	ew.printf("  ledger_enabled = %t\n", t.LedgerEnabled)

	if t.LedgerEnabled {
		ew.printf("  ledger_path    = %q\n", t.DBPath())
	}

	ew.printf("\n")
}

func renderLoggingSection(ew *errWriter, l *LoggingConfig) {
	ew.printf("[logging]\n")
	ew.printf("  log_level  = %q\n", l.LogLevel)
	ew.printf("  log_format = %q\n", l.LogFormat)
}
