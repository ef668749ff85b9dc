// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/jeranaias/konsulton-tui/internal/catalog"
	"github.com/jeranaias/konsulton-tui/internal/config"
	"github.com/jeranaias/konsulton-tui/internal/offline"
)

// Version information, set by main from ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath  string
	offline     bool
	locale      string
	metricsAddr string
	verbose     bool

	cfg *config.Config
}

// configFile returns the config path in effect.
func (o *globalOptions) configFile() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.ConfigPathTOML()
}

// loadConfig loads the config once and applies flag overrides on top.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}
	path, err := o.configFile()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}

	if o.offline {
		cfg.Offline = true
	}
	if o.locale != "" {
		cfg.UI.Locale = o.locale
	}
	if o.metricsAddr != "" {
		cfg.Metrics.Addr = o.metricsAddr
	}

	offline.SetOfflineMode(cfg.Offline)
	o.cfg = cfg
	return cfg, nil
}

// checkCatalogue rejects a built-in catalogue with a bad or duplicate entry.
func checkCatalogue(ds []catalog.Descriptor) error {
	if err := catalog.ValidateAll(ds); err != nil {
		log.Printf("CATALOGUE_INVALID | err=%v", err)
		return fmt.Errorf("model catalogue: %w", err)
	}
	return nil
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "konsulton",
		Short: "Chat with a language model stored on this machine",
		Long: `konsulton downloads small language models into a local folder and
chats with them through a local inference server (ollama or any
OpenAI-compatible endpoint). Without a subcommand it starts the TUI.`,
		Version:       Version + " (" + GitCommit + ", " + BuildDate + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.verbose {
				log.SetOutput(cmd.ErrOrStderr())
			} else {
				log.SetOutput(io.Discard)
			}
			return checkCatalogue(catalog.All())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default ~/.konsulton/config.toml)")
	pf.BoolVar(&opts.offline, "offline", false, "block all non-loopback network access")
	pf.StringVar(&opts.locale, "locale", "", "message language: id or en")
	pf.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on host:port")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		newTUICmd(opts),
		newChatCmd(opts),
		newModelsCmd(opts),
		newPullCmd(opts),
		newRmCmd(opts),
		newConfigCmd(opts),
		newTranscriptsCmd(opts),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		DisplayError(stderr, err)
		return GetExitCode(err)
	}
	return ExitSuccess
}
