package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/brochure/internal/config"
	"github.com/jackzampolin/brochure/internal/document"
	"github.com/jackzampolin/brochure/internal/output"
	"github.com/jackzampolin/brochure/internal/types"
)

type planResult struct {
	Source      string            `json:"source" yaml:"source"`
	ContentHash string            `json:"content_hash" yaml:"content_hash"`
	PageCount   int               `json:"page_count" yaml:"page_count"`
	SizeBytes   int               `json:"size_bytes" yaml:"size_bytes"`
	Chunks      []types.PageRange `json:"chunks" yaml:"chunks"`
}

var planCmd = &cobra.Command{
	Use:   "plan <pdf>",
	Short: "Show the content hash and chunk plan of a PDF without analyzing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfg := mgr.Get()

		doc, err := document.Load(args[0])
		if err != nil {
			return err
		}

		chunker := document.NewChunker(cfg.Pipeline.PagesPerChunk, cfg.Pipeline.ChunkThreshold, newLogger(cfg))
		return output.Write(cmd.OutOrStdout(), format, planResult{
			Source:      doc.Name,
			ContentHash: doc.Hash,
			PageCount:   doc.PageCount,
			SizeBytes:   len(doc.Content),
			Chunks:      chunker.Plan(doc),
		})
	},
}
