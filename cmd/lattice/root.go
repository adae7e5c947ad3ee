package main

import (
	"fmt"
	"os"

	"github.com/aretw0/lattice/internal/cli"
	"github.com/aretw0/lattice/internal/config"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lattice",
		Short: "Lattice runs tool-calling agents on a workflow graph engine",
		Long: `Lattice drives a language model through a model/function loop, executing the
tools it asks for until it produces a final answer. Every run is event sourced
and can be archived in memory, Redis or SQLite.`,
		SilenceUsage: true,
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a lattice.yaml configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging on stderr")

	rootCmd.AddCommand(
		newRunCmd(),
		newGraphCmd(),
		newToolsCmd(),
		newServeCmd(),
		newMCPCmd(),
		newValidateCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command and exits with a non-zero status on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration named by --config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// loadApp loads the configuration and wires the shared collaborators.
// The caller closes the returned app.
func loadApp(cmd *cobra.Command) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	logger, err := cli.NewLogger(cmd.ErrOrStderr(), cfg.Log, debug)
	if err != nil {
		return nil, fmt.Errorf("invalid log settings: %w", err)
	}
	return cli.NewApp(cfg, logger)
}
