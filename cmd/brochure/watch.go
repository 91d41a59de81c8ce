package main

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/brochure/internal/config"
	"github.com/jackzampolin/brochure/internal/inbox"
	"github.com/jackzampolin/brochure/internal/output"
	"github.com/jackzampolin/brochure/internal/pipeline"
	"github.com/jackzampolin/brochure/internal/svcctx"
)

var watchSettle time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Extract every PDF dropped into a directory",
	Long: `Watch a directory and run the pipeline on each new PDF. The result of
<name>.pdf is written next to it as <name>.result.json. PDFs already in the
directory without a result are processed first.

Changes to the pipeline and images sections of the config file are picked up
without restarting and apply to the next PDF.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd, svcctx.Options{})
		if err != nil {
			return err
		}
		defer s.Close()

		var processor atomic.Pointer[pipeline.Processor]
		processor.Store(s.Processor)

		s.Config.OnChange(func(cfg *config.Config) {
			p, err := pipeline.New(svcctx.PipelineConfig(cfg, s.Home, s.Store, s.Analyzer, s.DB, s.Logger))
			if err != nil {
				s.Logger.Warn("config reload rejected", "error", err)
				return
			}
			processor.Store(p)
			s.Logger.Info("config reloaded",
				"pages_per_chunk", cfg.Pipeline.PagesPerChunk,
				"chunk_concurrency", cfg.Pipeline.ChunkConcurrency)
		})
		s.Config.OnError(func(err error) {
			s.Logger.Warn("config reload rejected", "error", err)
		})
		s.Config.WatchConfig()

		w, err := inbox.New(inbox.Config{
			Dir:    args[0],
			Settle: watchSettle,
			Logger: s.Logger,
			Handler: func(ctx context.Context, path string) error {
				res, err := processor.Load().ProcessFile(ctx, path)
				if err != nil {
					return err
				}
				return output.WriteFile(inbox.ResultPath(path), output.FormatJSON, res)
			},
		})
		if err != nil {
			return err
		}
		return w.Run(cmd.Context())
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", inbox.DefaultSettle, "quiet period before a new file is processed")
}
