package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gdrive-files/internal/api"
	"github.com/tonimelisma/gdrive-files/internal/apitoken"
	"github.com/tonimelisma/gdrive-files/internal/config"
	"github.com/tonimelisma/gdrive-files/internal/files"
	"github.com/tonimelisma/gdrive-files/internal/gdrive"
	"github.com/tonimelisma/gdrive-files/internal/ledger"
	"github.com/tonimelisma/gdrive-files/internal/tasks"
)

var flagPort int

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the Google Drive file API until SIGINT or SIGTERM.

Writes are acknowledged immediately and carried out in the background. On
shutdown the listener closes first, then queued writes get up to
server.shutdown_timeout to finish.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().IntVar(&flagPort, "port", 0, "listen port (overrides server.port and SRC_PORT)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	cfg := cc.Cfg
	logger := cc.Logger

	config.WarnInsecure(cfg, logger)

	var opts []tasks.Option

	if cfg.Tasks.LedgerEnabled {
		led, err := ledger.Open(cmd.Context(), cfg.Tasks.DBPath(), logger)
		if err != nil {
			return err
		}
		defer led.Close()

		opts = append(opts, tasks.WithRecorder(led))
	}

	queue := tasks.NewQueue(logger, opts...)

	deps, err := apiDeps(cfg, queue, logger)
	if err != nil {
		return err
	}

	srv := api.NewServer(api.ServerConfig{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeoutDuration(),
		ShutdownTimeout:   cfg.Server.ShutdownTimeoutDuration(),
	}, api.NewRouter(deps), logger)

	ctx := shutdownContext(cmd.Context(), logger)
	serveErr := srv.ListenAndServe(ctx)

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeoutDuration())
	defer cancel()

	if err := queue.Drain(drainCtx); err != nil {
		logger.Warn("queued tasks did not finish before shutdown", slog.String("error", err.Error()))
	}

	return serveErr
}

// apiDeps wires the router to Drive, the queue and (optionally) token auth.
func apiDeps(cfg *config.Config, sched files.Scheduler, logger *slog.Logger) (api.Deps, error) {
	deps := api.Deps{
		NewStore:       storeFactory(cfg, logger),
		Scheduler:      sched,
		MaxUploadBytes: cfg.Server.MaxUploadBytes(),
		Logger:         logger,
	}

	if cfg.Auth.RequireToken {
		tokens, err := apitoken.New(cfg.Auth.SecretKey, cfg.Auth.Algorithm)
		if err != nil {
			return api.Deps{}, fmt.Errorf("configuring api tokens: %w", err)
		}

		deps.Tokens = tokens
	}

	return deps, nil
}

// storeFactory builds a fresh Drive client per request from the credential
// cache.
func storeFactory(cfg *config.Config, logger *slog.Logger) api.StoreFactory {
	cc := clientConfig(cfg)

	return func(ctx context.Context) (files.Store, error) {
		// Background tasks keep using the client after the request returns.
		client, err := gdrive.NewClientFromTokenFile(context.WithoutCancel(ctx), cc, logger)
		if err != nil {
			return nil, err
		}

		return client, nil
	}
}

func clientConfig(cfg *config.Config) gdrive.ClientConfig {
	return gdrive.ClientConfig{
		OAuth:     oauthConfig(cfg),
		TokenPath: cfg.Google.TokenPath(),
		Endpoint:  cfg.Google.APIEndpoint,
		Timeout:   cfg.Google.RequestTimeoutDuration(),
	}
}

func oauthConfig(cfg *config.Config) gdrive.OAuthConfig {
	return gdrive.OAuthConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
	}
}
