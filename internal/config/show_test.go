package config

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEffective(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Google.ClientID = "id.apps.googleusercontent.com"
	cfg.Google.ClientSecret = "very-secret"
	cfg.Tasks.LedgerEnabled = true
	cfg.Tasks.LedgerPath = "/tmp/tasks.db"

	var buf bytes.Buffer
	require.NoError(t, RenderEffective(cfg, "/etc/config.toml", &buf))

	out := buf.String()
	assert.Contains(t, out, "/etc/config.toml")
	assert.Contains(t, out, "[server]")
	assert.Contains(t, out, "port                = 8000")
	assert.Contains(t, out, `client_id       = "id.apps.googleusercontent.com"`)
	assert.Contains(t, out, `ledger_path    = "/tmp/tasks.db"`)
	assert.Contains(t, out, redacted)
	assert.NotContains(t, out, "very-secret")
	assert.NotContains(t, out, "secret_key :)")
}

func TestRenderEffective_EmptySecretsShowEmpty(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Auth.SecretKey = ""

	var buf bytes.Buffer
	require.NoError(t, RenderEffective(cfg, "", &buf))

	assert.Contains(t, buf.String(), `secret_key    = ""`)
	assert.NotContains(t, buf.String(), "ledger_path")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestRenderEffective_WriteError(t *testing.T) {
	err := RenderEffective(DefaultConfig(), "", failingWriter{})
	assert.EqualError(t, err, "closed pipe")
}
