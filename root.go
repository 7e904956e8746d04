package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/gdrive-files/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// dotEnvFile is read from the working directory before config resolution.
const dotEnvFile = ".env"

// skipConfigAnnotation marks commands that must run without a valid config
// (config init writes the first one).
const skipConfigAnnotation = "skipConfig"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagVerbose    bool
	flagQuiet      bool
)

// CLIFlags is a snapshot of the global flags for one invocation.
type CLIFlags struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
}

// CLIContext carries what every command needs: the flags, the resolved
// config and a logger built from both.
type CLIContext struct {
	Flags   CLIFlags
	Cfg     *config.Config
	CfgPath string
	Logger  *slog.Logger
}

// Statusf prints a status message to stderr unless quiet mode is set.
func (cc *CLIContext) Statusf(format string, args ...any) {
	statusf(cc.Flags.Quiet, format, args...)
}

type cliContextKey struct{}

func withCLIContext(ctx context.Context, cc *CLIContext) context.Context {
	return context.WithValue(ctx, cliContextKey{}, cc)
}

// mustCLIContext returns the CLIContext stored by the root pre-run hook.
// Panics if it is missing, which means a command bypassed newRootCmd.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("BUG: CLIContext missing from command context")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gdrive-files",
		Short:   "HTTP API over a Google Drive account",
		Long:    "Serve list, lookup, upload, update, move and delete of Google Drive files by name.",
		Version: version,
		// Errors are printed by main.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := loadCLIContext(cmd)
			if err != nil {
				return err
			}

			cmd.SetContext(withCLIContext(cmd.Context(), cc))

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newTasksCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadCLIContext reads .env, resolves the config layers and builds the
// logger. Commands annotated with skipConfigAnnotation get defaults.
func loadCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	flags := CLIFlags{ConfigPath: flagConfigPath, Verbose: flagVerbose, Quiet: flagQuiet}

	loaded, err := config.LoadDotEnv(dotEnvFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dotEnvFile, err)
	}

	env := config.ReadEnvOverrides()
	cli := config.CLIOverrides{ConfigPath: flags.ConfigPath}

	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		port := flagPort
		cli.Port = &port
	}

	cc := &CLIContext{
		Flags:   flags,
		CfgPath: config.ResolvePath(env, cli),
	}

	if cmd.Annotations[skipConfigAnnotation] == "true" {
		cc.Cfg = config.DefaultConfig()
	} else {
		cfg, err := config.Resolve(env, cli)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}

		cc.Cfg = cfg
	}

	cc.Logger = buildLogger(os.Stderr, &cc.Cfg.Logging, flags)

	if len(loaded) > 0 {
		cc.Logger.Debug("loaded .env", slog.Any("keys", loaded))
	}

	return cc, nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win.
func buildLogger(w io.Writer, lc *config.LoggingConfig, flags CLIFlags) *slog.Logger {
	level := slog.LevelInfo

	switch lc.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if useJSONLogs(w, lc.LogFormat) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// useJSONLogs resolves log_format; "auto" picks JSON unless w is a terminal.
func useJSONLogs(w io.Writer, format string) bool {
	switch format {
	case "json":
		return true
	case "text":
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return true
	}

	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
