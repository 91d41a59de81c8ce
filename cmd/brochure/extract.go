package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/brochure/internal/output"
	"github.com/jackzampolin/brochure/internal/svcctx"
)

var (
	extractOut  string
	extractSave bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <pdf>",
	Short: "Extract a structured project record from a brochure PDF",
	Long: `Run the full pipeline on one PDF and print the finalized record together
with errors, warnings, and per-chunk summaries.

A chunk that fails does not stop the job; its error is reported and the
record is assembled from the remaining chunks.

Examples:
  brochure extract marina-heights.pdf
  brochure extract marina-heights.pdf -o json --out result.json
  brochure extract marina-heights.pdf --save`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd, svcctx.Options{})
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.Processor.ProcessFile(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("extraction failed: %w", err)
		}

		if extractSave {
			path := s.Home.ResultPath(res.JobID, string(format))
			if err := output.WriteFile(path, format, res); err != nil {
				return err
			}
			s.Logger.Info("result saved", "path", path)
		}
		if extractOut != "" {
			if err := output.WriteFile(extractOut, format, res); err != nil {
				return err
			}
			s.Logger.Info("result written", "path", extractOut)
			return nil
		}
		return output.Write(cmd.OutOrStdout(), format, res)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractOut, "out", "", "write the result to a file instead of stdout")
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "also save the result under <home>/results/<job-id>")
}
