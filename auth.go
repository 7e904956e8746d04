package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/tonimelisma/gdrive-files/internal/gdrive"
)

var flagWhoamiJSON bool

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize access to a Google Drive account in the browser",
		Args:  cobra.NoArgs,
		RunE:  runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved Google credentials",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Display the Google account the server acts on",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}

	cmd.Flags().BoolVar(&flagWhoamiJSON, "json", false, "output in JSON format")

	return cmd
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()
	logger := cc.Logger
	tokenPath := cc.Cfg.Google.TokenPath()

	logger.Info("login started", slog.String("token_path", tokenPath))

	ts, err := gdrive.LoginWithBrowser(ctx, oauthConfig(cc.Cfg), tokenPath, openBrowser, logger)
	if err != nil {
		return err
	}

	client, err := gdrive.NewClient(ctx, oauth2.NewClient(ctx, ts), cc.Cfg.Google.APIEndpoint, logger)
	if err != nil {
		return err
	}

	acct, err := client.About(ctx)
	if err != nil {
		return fmt.Errorf("fetching account: %w", err)
	}

	if err := gdrive.RecordAccount(tokenPath, acct.Email); err != nil {
		return fmt.Errorf("recording account: %w", err)
	}

	logger.Info("login successful", slog.String("account", acct.Email))
	cc.Statusf("Signed in as %s.\n", acct.Email)

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if err := gdrive.Logout(cc.Cfg.Google.TokenPath(), cc.Logger); err != nil {
		return err
	}

	cc.Statusf("Logged out.\n")

	return nil
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	QuotaUsed   int64  `json:"quota_used"`
	QuotaLimit  int64  `json:"quota_limit"`
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	client, err := gdrive.NewClientFromTokenFile(ctx, clientConfig(cc.Cfg), cc.Logger)
	if err != nil {
		if errors.Is(err, gdrive.ErrNotLoggedIn) {
			return fmt.Errorf("not logged in, run 'gdrive-files login' first")
		}

		return err
	}

	acct, err := client.About(ctx)
	if err != nil {
		return fmt.Errorf("fetching account: %w", err)
	}

	if flagWhoamiJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(whoamiOutput{
			DisplayName: acct.DisplayName,
			Email:       acct.Email,
			QuotaUsed:   acct.QuotaUsed,
			QuotaLimit:  acct.QuotaLimit,
		})
	}

	fmt.Printf("Account: %s <%s>\n", acct.DisplayName, acct.Email)

	if acct.QuotaLimit > 0 {
		fmt.Printf("Storage: %s used of %s\n", formatSize(acct.QuotaUsed), formatSize(acct.QuotaLimit))
	} else {
		fmt.Printf("Storage: %s used (unlimited)\n", formatSize(acct.QuotaUsed))
	}

	return nil
}
