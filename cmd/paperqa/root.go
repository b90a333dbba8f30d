package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "paperqa [file]",
		Short: "Ask questions about a research paper",
		Long: `paperqa loads a research paper (PDF, text or Markdown), embeds it with a
local Ollama server and answers questions using only the paper's content.

Without a subcommand it opens the interactive terminal UI.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, args)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML config file (default ./config.yaml or ~/.config/paperqa/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	root.AddCommand(
		newChatCmd(opts),
		newAskCmd(opts),
		newSearchCmd(opts),
		newModelsCmd(opts),
		newInfoCmd(opts),
	)
	return root
}
