package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/brochure/internal/config"
	"github.com/jackzampolin/brochure/internal/home"
	"github.com/jackzampolin/brochure/internal/output"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to the home directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := home.New(homeDir)
		if err != nil {
			return err
		}
		path := dir.ConfigPath()
		if cfgFile != "" {
			path = cfgFile
		}
		if dir.ConfigExists() && path == dir.ConfigPath() && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		return output.Write(cmd.OutOrStdout(), format, mgr.Get())
	},
}

var configDefaultsCmd = &cobra.Command{
	Use:   "defaults [key]",
	Short: "List configuration keys with their defaults",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			entry, err := config.GetDefault(args[0])
			if err != nil {
				return err
			}
			return output.Write(cmd.OutOrStdout(), format, entry)
		}
		return output.Write(cmd.OutOrStdout(), format, config.DefaultEntries())
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")
	configCmd.AddCommand(configInitCmd, configShowCmd, configDefaultsCmd)
}
