package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and the tools file",
		Long:  `Loads the configuration, registers the declared tools and compiles the agent graph.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			defer app.Close()

			if _, err := app.NewAgent(app.Model()); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (%d tools, %s store).\n",
				app.Tools.Len(), app.Config.Store.Backend)
			return nil
		},
	}
}
