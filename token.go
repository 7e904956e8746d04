package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gdrive-files/internal/apitoken"
)

var (
	flagTokenSubject string
	flagTokenTTL     time.Duration
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API bearer token",
		Long: `Print a bearer token signed with auth.secret_key. The server only checks
tokens when auth.require_token is true.

Example:
  curl -H "Authorization: Bearer $(gdrive-files token --subject ci)" \
    http://localhost:8000/v1/google_drive_files/files_list/`,
		Args: cobra.NoArgs,
		RunE: runToken,
	}

	cmd.Flags().StringVar(&flagTokenSubject, "subject", "", "who the token is for (required)")
	cmd.Flags().DurationVar(&flagTokenTTL, "ttl", 0, "token lifetime (default auth.token_ttl)")

	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func runToken(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	ttl := cc.Cfg.Auth.TokenTTLDuration()
	if cmd.Flags().Changed("ttl") {
		ttl = flagTokenTTL
	}

	mgr, err := apitoken.New(cc.Cfg.Auth.SecretKey, cc.Cfg.Auth.Algorithm)
	if err != nil {
		return err
	}

	token, err := mgr.Issue(flagTokenSubject, ttl)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)

	if !cc.Cfg.Auth.RequireToken {
		cc.Statusf("Note: auth.require_token is false; the server does not check tokens.\n")
	}

	return nil
}
