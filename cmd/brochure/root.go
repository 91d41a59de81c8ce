package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/brochure/internal/config"
	"github.com/jackzampolin/brochure/internal/home"
	"github.com/jackzampolin/brochure/internal/output"
	"github.com/jackzampolin/brochure/internal/svcctx"
	"github.com/jackzampolin/brochure/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	verbose      bool

	format output.Format
)

var rootCmd = &cobra.Command{
	Use:   "brochure",
	Short: "Extract structured project records from property brochure PDFs",
	Long: `Brochure turns large marketing PDFs for real-estate projects into a single
structured record: units, payment plans, amenities, and categorized images.

The pipeline:
  - Splits large documents into page-range chunks
  - Renders every page once and caches four image variants per page
  - Analyzes pages concurrently with a vision model
  - Merges and deduplicates the partial results into one record`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		format, err = output.ParseFormat(outputFormat)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.brochure/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "brochure home directory (default: ~/.brochure)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
}

// loadEnv reads .env from the working directory and the home directory.
// Variables already set in the environment win.
func loadEnv(dir *home.Dir) error {
	for _, path := range []string{".env", filepath.Join(dir.Path(), ".env")} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// setup loads environment, configuration, and services for a command.
func setup(cmd *cobra.Command, opts svcctx.Options) (*svcctx.Services, error) {
	dir, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := loadEnv(dir); err != nil {
		return nil, err
	}

	path := cfgFile
	if path == "" && dir.ConfigExists() {
		path = dir.ConfigPath()
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		return nil, err
	}

	logger := newLogger(mgr.Get())
	slog.SetDefault(logger)

	s, err := svcctx.Build(mgr, dir, logger, opts)
	if err != nil {
		return nil, err
	}
	cmd.SetContext(svcctx.WithServices(cmd.Context(), s))
	return s, nil
}
