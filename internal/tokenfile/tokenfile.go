// Package tokenfile reads and writes the credential cache: the OAuth2 token
// set for the Google account the server acts on, plus the account details
// recorded at login. It is a leaf package so both config/ and gdrive/ can use
// it without an import cycle.
package tokenfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// FilePerms restricts the credential cache to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the directory holding the cache.
const DirPerms = 0o700

// Credentials is the on-disk format of the credential cache.
type Credentials struct {
	Token   *oauth2.Token `json:"token"`
	Account string        `json:"account,omitempty"`
	Scopes  []string      `json:"scopes,omitempty"`
	SavedAt time.Time     `json:"saved_at"`
}

// Load reads the credential cache at path. Returns (nil, nil) if the file
// does not exist, which callers treat as "not logged in".
func Load(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("tokenfile: reading %s: %w", path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("tokenfile: decoding %s: %w", path, err)
	}

	if creds.Token == nil {
		return nil, fmt.Errorf("tokenfile: %s missing token field (re-login required)", path)
	}

	return &creds, nil
}

// Save writes the credential cache atomically (temp file + rename) with 0600
// permissions. SavedAt is stamped here. Never logs token values.
func Save(path string, creds *Credentials) error {
	if creds == nil || creds.Token == nil {
		return errors.New("tokenfile: refusing to save empty credentials")
	}

	stamped := *creds
	stamped.SavedAt = time.Now().UTC()

	data, err := json.MarshalIndent(stamped, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenfile: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("tokenfile: creating directory %s: %w", dir, mkErr)
	}

	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("tokenfile: renaming: %w", err)
	}

	success = true

	return nil
}

// ReplaceToken swaps the token in an existing cache, keeping the account and
// scopes recorded at login. Used after a silent refresh.
func ReplaceToken(path string, tok *oauth2.Token) error {
	creds, err := Load(path)
	if err != nil {
		return err
	}

	if creds == nil {
		return fmt.Errorf("tokenfile: no credential cache at %s", path)
	}

	creds.Token = tok

	return Save(path, creds)
}

// Remove deletes the credential cache. A missing file is not an error.
func Remove(path string) (bool, error) {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("tokenfile: removing %s: %w", path, err)
	}

	return true, nil
}
