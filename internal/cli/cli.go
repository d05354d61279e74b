// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Root command and shared setup for datachat.

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/jeranaias/datachat-tui/internal/backend"
	"github.com/jeranaias/datachat-tui/internal/commands"
	"github.com/jeranaias/datachat-tui/internal/config"
	"github.com/jeranaias/datachat-tui/internal/logging"
	"github.com/jeranaias/datachat-tui/internal/reply"
	"github.com/jeranaias/datachat-tui/internal/session"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// GLOBAL FLAGS
// =============================================================================

type globalFlags struct {
	configPath string
	backendURL string
	timeout    time.Duration
	verbose    bool
	output     string
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "config file (default: ~/.datachat/config.toml)")
	fs.StringVar(&g.backendURL, "backend", "", "dataset assistant API base URL")
	fs.DurationVar(&g.timeout, "timeout", 0, "per-request timeout (e.g. 30s)")
	fs.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")
	fs.StringVarP(&g.output, "output", "o", string(FormatTable), "output format (table|json|yaml)")
}

// =============================================================================
// APP
// =============================================================================

// app is the state shared by every subcommand, built once per run.
type app struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	client     *backend.Client
	registry   *commands.Registry
	printer    *Printer
}

type appKey struct{}

func appFrom(cmd *cobra.Command) *app {
	if a, ok := cmd.Context().Value(appKey{}).(*app); ok {
		return a
	}
	return nil
}

func newApp(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	format, err := ParseOutputFormat(flags.output)
	if err != nil {
		return nil, err
	}

	cfg, path, err := loadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.backendURL != "" {
		cfg.Backend.URL = flags.backendURL
	}
	if flags.timeout > 0 {
		cfg.Backend.TimeoutSecs = max(int(flags.timeout.Seconds()), 1)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	config.SetGlobal(cfg)

	logFile, err := logPath(cfg)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, File: logFile, Verbose: flags.verbose})
	if err != nil {
		return nil, err
	}

	client := backend.NewClient(cfg.Backend.URL).
		WithTimeout(cfg.Timeout()).
		WithMaxResponseSize(cfg.MaxResponseBytes()).
		WithLogger(logger)
	if rps := cfg.Backend.RequestsPerSecond; rps > 0 {
		client = client.WithRateLimit(rps, max(int(rps), 1))
	}

	logger.Debug("datachat starting",
		zap.String("version", Version),
		zap.String("command", cmd.CommandPath()),
		zap.String("backend", cfg.Backend.URL),
		zap.String("config", path))

	return &app{
		cfg:        cfg,
		configPath: path,
		logger:     logger,
		client:     client,
		registry:   commands.NewRegistry(client),
		printer:    NewPrinter(format, cmd.OutOrStdout()),
	}, nil
}

// loadConfig loads the config at path, or from the default location.
// It returns the path a later "config init" or the reload watcher uses.
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.LoadFromPath(path)
		if err != nil {
			return nil, path, &ConfigError{Path: path, Err: err}
		}
		return cfg, path, nil
	}

	path, err := defaultConfigPath()
	if err != nil {
		return nil, "", &ConfigError{Err: err}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, path, &ConfigError{Path: path, Err: err}
	}
	return cfg, path, nil
}

// defaultConfigPath returns the config file in use: TOML, then JSON, then
// the TOML path when neither exists yet.
func defaultConfigPath() (string, error) {
	tomlPath, err := config.ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	if jsonPath, err := config.ConfigPathJSON(); err == nil {
		if _, err := os.Stat(jsonPath); err == nil {
			return jsonPath, nil
		}
	}
	return tomlPath, nil
}

func logPath(cfg *config.Config) (string, error) {
	if cfg.Log.File != "" {
		return cfg.Log.File, nil
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "datachat.log"), nil
}

// sessionFactory returns a constructor for chat sessions using the
// configured reply parser chain.
func (a *app) sessionFactory(autoExecute bool) (func() *session.Controller, error) {
	parser, err := reply.NewChainFromNames(a.cfg.Chat.Parsers, a.registry.Known)
	if err != nil {
		return nil, &ConfigError{Path: a.configPath, Err: err}
	}
	return func() *session.Controller {
		return session.New(a.client, a.registry, parser, session.Options{
			AutoExecute: autoExecute,
			CardTimeout: a.cfg.Timeout(),
			Logger:      a.logger,
		})
	}, nil
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCmd creates the datachat command tree.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "datachat",
		Short: "Chat with a dataset assistant from the terminal",
		Long: `datachat talks to a dataset assistant API. Replies can carry command
directives (dataset and datacard searches, dataset queries) that show up as
command cards you run from the conversation.

With no subcommand datachat opens the full-screen chat when attached to a
terminal, and a line-mode chat otherwise.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipSetup(cmd) {
				return nil
			}
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a := appFrom(cmd); a != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if Interactive() {
				return runTUI(cmd.Context(), a)
			}
			return runREPL(cmd, a, true)
		},
	}

	root.SetVersionTemplate("{{.Name}} {{.Version}}\n")
	flags.register(root.PersistentFlags())
	_ = root.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return OutputFormats, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newChatCommand(),
		newAskCommand(),
		newSearchCommand(),
		newQueryCommand(),
		newDatacardCommand(),
		newConfigCommand(flags),
		newVersionCommand(),
	)
	return root
}

// skipSetup reports commands that must work without a valid config.
func skipSetup(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "completion", "__complete", "version", "path", "init":
		return true
	}
	return false
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, RenderConditional(ErrorStyle, "Error: "+err.Error()))
		return ExitCode(err)
	}
	return ExitSuccess
}
