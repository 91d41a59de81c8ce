package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/brochure/internal/output"
	"github.com/jackzampolin/brochure/internal/recorder"
	"github.com/jackzampolin/brochure/internal/svcctx"
)

var jobCalls bool

type jobReport struct {
	Summary recorder.Summary `json:"summary" yaml:"summary"`
	Chunks  []recorder.Chunk `json:"chunks" yaml:"chunks"`
	Calls   []recorder.Call  `json:"calls,omitempty" yaml:"calls,omitempty"`
}

var jobCmd = &cobra.Command{
	Use:   "job <job-id>",
	Short: "Show the recorded diagnostics of an extraction job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd, svcctx.Options{WithoutAnalyzer: true})
		if err != nil {
			return err
		}
		defer s.Close()

		summary, err := recorder.LoadSummary(s.DB, args[0])
		if err != nil {
			return err
		}
		chunks, err := recorder.LoadChunks(s.DB, args[0])
		if err != nil {
			return err
		}
		report := jobReport{Summary: summary, Chunks: chunks}
		if jobCalls {
			if report.Calls, err = recorder.LoadCalls(s.DB, args[0]); err != nil {
				return err
			}
		}
		return output.Write(cmd.OutOrStdout(), format, report)
	},
}

func init() {
	jobCmd.Flags().BoolVar(&jobCalls, "calls", false, "include every analyzer call")
}
