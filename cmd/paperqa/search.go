package main

import (
	"github.com/spf13/cobra"

	"paperqa/internal/ollama"
)

func newSearchCmd(opts *options) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "search [file] [query]",
		Short: "Show the passages of a paper most relevant to a query",
		Long: `Loads the paper and prints the passages that would be used as context for
the query, without generating an answer.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, logWriter(opts))
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if _, ok := a.embedder.(*ollama.Client); ok {
				if err := a.ollama.Ping(ctx); err != nil {
					return err
				}
			}
			if err := a.load(ctx, args[0]); err != nil {
				return err
			}
			results, err := a.service.Retrieve(ctx, args[1], topK)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				cmd.Println("No matching passages.")
				return nil
			}
			printPassages(cmd, results)
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of passages to show (default from config)")
	return cmd
}
