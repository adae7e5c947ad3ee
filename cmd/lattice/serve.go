package main

import (
	"github.com/aretw0/lattice/internal/cli"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serves the agent over HTTP: runs, the run archive, live run events (SSE),
the graph, the tools and Prometheus metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			addr := app.Config.Server.Addr
			if cmd.Flags().Changed("addr") {
				addr, _ = cmd.Flags().GetString("addr")
			}

			ctx := cli.NewSignalContext(cmd.Context())
			defer ctx.Cancel()

			return cli.Serve(ctx, app, app.Model(), addr)
		},
	}

	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on (overrides server.addr)")
	return serveCmd
}
