package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config files may hold the OAuth client secret, so they are owner-only.
const (
	configFilePermissions = 0o600
	configDirPermissions  = 0o700
)

// ErrConfigExists is returned by WriteTemplate when the target file exists.
var ErrConfigExists = errors.New("config file already exists")

// configTemplate is the config file written by "config init". Every setting
// is present as a commented-out default so operators can discover each
// option without reading docs.
const configTemplate = `# gdrive-files configuration
#
# Environment variables override this file: SRC_PORT, DOCKER_PORT,
# SECRET_KEY, ALGORITHM, GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET.

[server]
# port = 8000
# docker_port = 8000
# read_header_timeout = "10s"
# shutdown_timeout = "30s"
# max_upload_size = "100MiB"

[auth]
# Bearer tokens are only checked when require_token is true.
# Mint one with: gdrive-files token --subject <name>
# secret_key = ""
# algorithm = "HS256"
# require_token = false
# token_ttl = "24h"

[google]
# OAuth client for a "Desktop app" in the Google Cloud console.
# client_id = ""
# client_secret = ""
# token_file = ""
# request_timeout = "60s"

[tasks]
# Record background task outcomes in a local SQLite database.
# ledger_enabled = false
# ledger_path = ""

[logging]
# log_level = "info"
# log_format = "auto"
`

// WriteTemplate writes the commented default config file to path. It never
// overwrites an existing file.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	return atomicWriteFile(path, []byte(configTemplate))
}

// atomicWriteFile writes data to a temporary file in the same directory as
// path, then renames it to the target path. This prevents partial writes
// from corrupting the config file on crash. Parent directories are created
// as needed.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	// Clean up the temp file on any error path.
	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
