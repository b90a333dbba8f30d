package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newModelsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models available on the Ollama server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts, logWriter(opts))
			if err != nil {
				return err
			}
			defer a.Close()

			names, err := a.ollama.ListModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("list models: %w", err)
			}
			if len(names) == 0 {
				cmd.Println("No models installed.")
				return nil
			}
			current := a.ollama.ModelName()
			for _, name := range names {
				marker := " "
				if name == current {
					marker = "*"
				}
				cmd.Printf("%s %s\n", marker, name)
			}
			return nil
		},
	}
}
