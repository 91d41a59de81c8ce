package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/brochure/internal/document"
	"github.com/jackzampolin/brochure/internal/output"
	"github.com/jackzampolin/brochure/internal/svcctx"
	"github.com/jackzampolin/brochure/internal/types"
)

type cachedPage struct {
	Page     int              `json:"page" yaml:"page"`
	Variants types.VariantSet `json:"variants" yaml:"variants"`
}

var cacheCmd = &cobra.Command{
	Use:   "cache <hash|pdf>",
	Short: "List cached page images for a content hash",
	Long: `List the cached page images of a document. The argument is either a
content hash (as printed by "brochure plan") or a path to the PDF itself.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd, svcctx.Options{WithoutAnalyzer: true})
		if err != nil {
			return err
		}
		defer s.Close()

		hash := args[0]
		if doc, err := document.Load(hash); err == nil {
			hash = doc.Hash
		}

		entries, err := s.Index.List(cmd.Context(), hash)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return fmt.Errorf("no cached pages for %s", hash)
		}

		pages := make([]cachedPage, len(entries))
		for i, e := range entries {
			pages[i] = cachedPage{Page: e.Page, Variants: e.Variants}
		}
		return output.Write(cmd.OutOrStdout(), format, pages)
	},
}
