package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"paperqa/internal/chunker"
	"paperqa/internal/metadata"
	"paperqa/internal/summarizer"
)

func newInfoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "info [file]",
		Short: "Show title, authors and chunking of a paper without embedding it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, logWriter(opts))
			if err != nil {
				return err
			}
			defer a.Close()

			path := args[0]
			text, err := a.extractor.Extract(path)
			if err != nil {
				return err
			}
			meta := metadata.Extract(text)
			p := a.cfg.ChunkParams()
			chunks, err := chunker.Split(text, p.ChunkSize, p.Overlap)
			if err != nil {
				return err
			}

			cmd.Printf("Title:   %s\n", meta.Title)
			cmd.Printf("Authors: %s\n", strings.ReplaceAll(meta.Authors, "\n", "; "))
			cmd.Printf("Chunks:  %d (size %d, overlap %d)\n", len(chunks), p.ChunkSize, p.Overlap)
			cmd.Printf("Characters: %d\n", len([]rune(text)))

			if a.cfg.Summarizer.Type == "frequency" {
				summary, err := summarizer.NewFrequencySummarizer().Summarize(text, a.cfg.Summarizer.MaxSentences)
				if err == nil && summary != "" {
					cmd.Println()
					cmd.Println("Summary:")
					cmd.Printf("  %s\n", summary)
				}
			}

			fileMeta, err := a.extractor.Metadata(path)
			if err != nil {
				return fmt.Errorf("file metadata: %w", err)
			}
			keys := make([]string, 0, len(fileMeta))
			for k := range fileMeta {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			cmd.Println()
			cmd.Println("File:")
			for _, k := range keys {
				cmd.Printf("  %s: %s\n", k, fileMeta[k])
			}
			return nil
		},
	}
}
