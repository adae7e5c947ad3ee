package main

import (
	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/cli"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Exposes the agent and its tools as an MCP server.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			transport, _ := cmd.Flags().GetString("transport")
			addr, _ := cmd.Flags().GetString("addr")

			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cli.NewSignalContext(cmd.Context())
			defer ctx.Cancel()

			return cli.ServeMCP(ctx, app, app.Model(), transport, addr, lattice.Version)
		},
	}

	mcpCmd.Flags().String("transport", cli.TransportStdio, "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Address to listen on (only for SSE)")
	return mcpCmd
}
