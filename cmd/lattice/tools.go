package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newToolsCmd() *cobra.Command {
	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools available to the agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonMode, _ := cmd.Flags().GetBool("json")

			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			defs := app.Tools.Definitions()
			if jsonMode {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(defs)
			}

			if len(defs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tools registered.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDESCRIPTION")
			for _, def := range defs {
				fmt.Fprintf(w, "%s\t%s\n", def.Name, def.Description)
			}
			return w.Flush()
		},
	}

	toolsCmd.Flags().Bool("json", false, "Print the tool definitions sent to the model")
	return toolsCmd
}
