// Package main is the sysmate command: a terminal assistant that routes
// requests to LLM providers and runs their tool calls on this machine.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Cyclone1070/sysmate/internal/config"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configFile string
	logLevel   string
	mode       string
	verbose    bool
	noColor    bool

	loader *config.Loader
}

// loadConfig reads the config file, then applies flag overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	loader := o.loader
	if loader == nil {
		loader = config.NewLoader()
	}
	var (
		cfg *config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = loader.LoadFile(o.configFile)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.mode != "" {
		cfg.Policy.Mode = o.mode
	}
	if o.noColor {
		cfg.UI.Color = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// exitError ends the process with code after the failure was already
// shown to the user.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCmd(build Backends) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "sysmate",
		Short: "sysmate is a terminal assistant that operates this machine",
		Long: `sysmate sends each request to the LLM provider best suited for it and
runs the tool calls the model makes (files, shell, git, system info)
after checking them against the configured safety policy.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default is $HOME/.config/sysmate/config.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&opts.mode, "mode", "", "policy mode: permissive, confirm-destructive or strict")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "show routing and context decisions")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newChatCmd(opts, build),
		newAskCmd(opts, build),
		newToolsCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

func main() {
	if err := newRootCmd(defaultBackends()).Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
