package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/gdrive-files/internal/apitoken"
	"github.com/tonimelisma/gdrive-files/internal/config"
	"github.com/tonimelisma/gdrive-files/internal/gdrive"
	"github.com/tonimelisma/gdrive-files/internal/ledger"
	"github.com/tonimelisma/gdrive-files/internal/tasks"
)

// Global flag reset pattern: newRootCmd() binds flags via StringVar/BoolVar,
// which reset the global flag variables to their defaults. Tests drive the
// CLI through cmd.SetArgs() + cmd.Execute() so Cobra parses flags itself.

// isolateEnv points every path and override at a temp dir so the developer's
// own config, credentials and environment never leak into a test.
func isolateEnv(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	for _, key := range []string{
		config.EnvConfig, config.EnvSrcPort, config.EnvDockerPort, config.EnvSecretKey,
		config.EnvAlgorithm, config.EnvGoogleClientID, config.EnvGoogleClientSecret,
	} {
		t.Setenv(key, "")
	}

	return dir
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--quiet"}, args...))

	err := cmd.Execute()

	return out.String(), err
}

func TestConfigInit_WritesTemplateOnce(t *testing.T) {
	dir := isolateEnv(t)
	path := filepath.Join(dir, "nested", "config.toml")

	_, err := runCLI(t, "--config", path, "config", "init")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[server]")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)

	_, err = runCLI(t, "--config", path, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfigInit_IgnoresBrokenExistingConfig(t *testing.T) {
	dir := isolateEnv(t)
	path := writeConfig(t, dir, "bogus = true\n")

	_, err := runCLI(t, "--config", path, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfigShow_RedactsSecrets(t *testing.T) {
	dir := isolateEnv(t)
	path := writeConfig(t, dir, "[auth]\nsecret_key = \"s3cret\"\n\n[server]\nport = 9001\n")

	out, err := runCLI(t, "--config", path, "config", "show")
	require.NoError(t, err)

	assert.Contains(t, out, path)
	assert.Contains(t, out, "9001")
	assert.Contains(t, out, "(set, hidden)")
	assert.NotContains(t, out, "s3cret")
}

func TestConfigShow_EnvOverridesFile(t *testing.T) {
	dir := isolateEnv(t)
	path := writeConfig(t, dir, "[server]\nport = 9001\n")
	t.Setenv(config.EnvSrcPort, "9002")

	out, err := runCLI(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "9002")
}

func TestConfig_UnknownKeyFails(t *testing.T) {
	dir := isolateEnv(t)
	path := writeConfig(t, dir, "[server]\nprot = 9001\n")

	_, err := runCLI(t, "--config", path, "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
	assert.Contains(t, err.Error(), `did you mean "port"`)
}

func TestServePortFlag(t *testing.T) {
	dir := isolateEnv(t)
	path := writeConfig(t, dir, "[server]\nport = 9001\n")
	t.Setenv(config.EnvSrcPort, "9002")

	root := newRootCmd()
	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	require.NoError(t, serve.ParseFlags([]string{"--config", path, "--port", "9003"}))

	cc, err := loadCLIContext(serve)
	require.NoError(t, err)
	assert.Equal(t, 9003, cc.Cfg.Server.Port)
	assert.Equal(t, path, cc.CfgPath)
}

func TestToken_MintsValidToken(t *testing.T) {
	dir := isolateEnv(t)
	path := writeConfig(t, dir, "[auth]\nsecret_key = \"s3cret\"\nalgorithm = \"HS384\"\nrequire_token = true\n")

	out, err := runCLI(t, "--config", path, "token", "--subject", "ci", "--ttl", "1h")
	require.NoError(t, err)

	mgr, err := apitoken.New("s3cret", "HS384")
	require.NoError(t, err)

	claims, err := mgr.Validate(string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.Equal(t, "ci", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestToken_SecretFromEnvironment(t *testing.T) {
	isolateEnv(t)
	t.Setenv(config.EnvSecretKey, "from-env")

	out, err := runCLI(t, "token", "--subject", "ops")
	require.NoError(t, err)

	mgr, err := apitoken.New("from-env", "HS256")
	require.NoError(t, err)

	claims, err := mgr.Validate(string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestToken_RequiresSubject(t *testing.T) {
	isolateEnv(t)

	_, err := runCLI(t, "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject")
}

func TestTasks_LedgerDisabled(t *testing.T) {
	isolateEnv(t)

	_, err := runCLI(t, "tasks")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger_enabled")
}

func TestTasks_ListsLedger(t *testing.T) {
	dir := isolateEnv(t)
	dbPath := filepath.Join(dir, "tasks.db")
	path := writeConfig(t, dir, "[tasks]\nledger_enabled = true\nledger_path = \""+dbPath+"\"\n")

	ctx := context.Background()
	led, err := ledger.Open(ctx, dbPath, quietLogger())
	require.NoError(t, err)

	now := time.Now()
	h := tasks.Handle{ID: "task-1", Op: "delete", Target: "report.pdf", ScheduledAt: now}
	require.NoError(t, led.TaskScheduled(ctx, h))
	require.NoError(t, led.TaskFinished(ctx, tasks.Outcome{
		Handle: h, FinishedAt: now.Add(time.Second), Err: errors.New("files: not deleted"),
	}))
	require.NoError(t, led.Close())

	out, err := runCLI(t, "--config", path, "tasks", "--json")
	require.NoError(t, err)

	var entries []ledger.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "task-1", entries[0].ID)
	assert.Equal(t, ledger.StatusFailed, entries[0].Status)

	out, err = runCLI(t, "--config", path, "tasks")
	require.NoError(t, err)
	assert.Contains(t, out, "task-1")
	assert.Contains(t, out, "report.pdf")
	assert.Contains(t, out, "files: not deleted")
}

func TestTasks_RejectsNonPositiveLimit(t *testing.T) {
	dir := isolateEnv(t)
	path := writeConfig(t, dir, "[tasks]\nledger_enabled = true\n")

	_, err := runCLI(t, "--config", path, "tasks", "--limit", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--limit")
}

func TestBuildLogger_Levels(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		level   string
		flags   CLIFlags
		enabled slog.Level
		muted   slog.Level
	}{
		{"default info", "info", CLIFlags{}, slog.LevelInfo, slog.LevelDebug},
		{"config warn", "warn", CLIFlags{}, slog.LevelWarn, slog.LevelInfo},
		{"verbose wins", "error", CLIFlags{Verbose: true}, slog.LevelDebug, slog.LevelDebug - 1},
		{"quiet wins", "debug", CLIFlags{Quiet: true}, slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := buildLogger(&buf, &config.LoggingConfig{LogLevel: tt.level, LogFormat: "text"}, tt.flags)

			assert.True(t, logger.Handler().Enabled(ctx, tt.enabled))
			assert.False(t, logger.Handler().Enabled(ctx, tt.muted))
		})
	}
}

func TestBuildLogger_Formats(t *testing.T) {
	var text, js, auto bytes.Buffer

	buildLogger(&text, &config.LoggingConfig{LogFormat: "text"}, CLIFlags{}).Info("hello")
	buildLogger(&js, &config.LoggingConfig{LogFormat: "json"}, CLIFlags{}).Info("hello")
	buildLogger(&auto, &config.LoggingConfig{LogFormat: "auto"}, CLIFlags{}).Info("hello")

	assert.Contains(t, text.String(), "msg=hello")
	assert.True(t, json.Valid(js.Bytes()))
	assert.True(t, json.Valid(auto.Bytes()), "auto logs JSON when not writing to a terminal")
}

func TestAPIDeps_TokenAuth(t *testing.T) {
	cfg := config.DefaultConfig()

	deps, err := apiDeps(cfg, tasks.NewQueue(quietLogger()), quietLogger())
	require.NoError(t, err)
	assert.Nil(t, deps.Tokens)
	assert.Equal(t, int64(100<<20), deps.MaxUploadBytes)

	cfg.Auth.RequireToken = true

	deps, err = apiDeps(cfg, tasks.NewQueue(quietLogger()), quietLogger())
	require.NoError(t, err)
	assert.NotNil(t, deps.Tokens)
}

func TestStoreFactory_NotLoggedIn(t *testing.T) {
	dir := isolateEnv(t)

	cfg := config.DefaultConfig()
	cfg.Google.TokenFile = filepath.Join(dir, "missing.json")

	_, err := storeFactory(cfg, quietLogger())(context.Background())
	assert.ErrorIs(t, err, gdrive.ErrNotLoggedIn)
}
