package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/lattice/internal/presentation/graph"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	graphCmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the agent graph",
		Long:  `Outputs a Mermaid diagram (graph TD) of the agent graph, or its topology as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")

			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			a, err := app.NewAgent(app.Model())
			if err != nil {
				return err
			}
			g := a.Graph()

			switch format {
			case "mermaid":
				fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, nil))
				return nil
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"name":  g.Name(),
					"nodes": g.Nodes(),
					"edges": g.Topology(),
				})
			default:
				return fmt.Errorf("unknown format %q (supported: mermaid, json)", format)
			}
		},
	}

	graphCmd.Flags().StringP("format", "f", "mermaid", "Output format: mermaid or json")
	return graphCmd
}
