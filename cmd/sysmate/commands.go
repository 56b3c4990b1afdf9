package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Cyclone1070/sysmate/internal/config"
	"github.com/Cyclone1070/sysmate/internal/logging"
	"github.com/Cyclone1070/sysmate/internal/tool"
	"github.com/Cyclone1070/sysmate/internal/ui"
)

func newToolsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools models can call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			d, err := newDispatcher(cfg, logging.Discard())
			if err != nil {
				return err
			}
			console := ui.NewConsole(cmd.OutOrStdout(), ui.NewStyles(cfg.UI.Color), 0)
			printTools(console, d.Registry().List())
			return nil
		},
	}
}

// printTools writes one line per tool: name, capability, and description,
// with destructive tools marked.
func printTools(console *ui.Console, specs []tool.Spec) {
	st := console.Styles
	for _, spec := range specs {
		name := fmt.Sprintf("%-14s", spec.Name)
		line := fmt.Sprintf("%s %-14s %s", st.Tool.Render(name), spec.Capability, firstSentence(spec.Description))
		if spec.Destructive {
			line += st.Warn.Render(" [destructive]")
		}
		console.Println(line)
	}
}

func firstSentence(s string) string {
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging the config file over the
defaults, as YAML. The output is a valid config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			out, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
