package main

import (
	"strings"

	"github.com/spf13/cobra"

	"paperqa/internal/domain"
)

func newAskCmd(opts *options) *cobra.Command {
	var (
		topK        int
		showContext bool
	)
	cmd := &cobra.Command{
		Use:   "ask [file] [question]",
		Short: "Answer one question about a paper",
		Long: `Loads the paper, answers a single question from its content and exits.
The answer is printed to stdout; a failed answer exits with status 1.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.topK = topK
			return runAsk(cmd, opts, args[0], args[1], showContext)
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of passages used as context (default from config)")
	cmd.Flags().BoolVar(&showContext, "show-context", false, "print the retrieved passages")
	return cmd
}

func runAsk(cmd *cobra.Command, opts *options, path, question string, showContext bool) error {
	a, err := newApp(opts, logWriter(opts))
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.ollama.Ping(ctx); err != nil {
		return err
	}
	if err := a.load(ctx, path); err != nil {
		return err
	}
	text, sources, askErr := a.service.AskWithSources(ctx, question)
	cmd.Println(text)

	if showContext && askErr == nil {
		cmd.Println()
		cmd.Println("Context:")
		printPassages(cmd, sources)
	}
	return askErr
}

func printPassages(cmd *cobra.Command, results []domain.SearchResult) {
	for i, r := range results {
		cmd.Printf("  [%d] chunk %d (%.3f)\n", i+1, r.Chunk.Index, r.Score)
		cmd.Printf("      %s\n", strings.Join(strings.Fields(r.Chunk.Text), " "))
	}
}
