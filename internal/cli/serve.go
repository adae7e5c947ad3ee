package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/lattice/pkg/adapters/http"
	mcpAdapter "github.com/aretw0/lattice/pkg/adapters/mcp"
	"github.com/aretw0/lattice/pkg/model"
	"github.com/aretw0/lattice/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 5 * time.Second

// NewHTTPHandler builds the HTTP API with Prometheus metrics on its own registry.
func NewHTTPHandler(app *App, m model.Model) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	a, err := app.NewAgent(m, metrics.Hooks())
	if err != nil {
		return nil, err
	}
	return httpAdapter.NewHandler(httpAdapter.Options{
		Agent:    a,
		Archive:  app.Archive,
		Gatherer: reg,
		Logger:   app.Logger,
	})
}

// Serve runs the HTTP API on addr until ctx is cancelled.
func Serve(ctx context.Context, app *App, m model.Model, addr string) error {
	handler, err := NewHTTPHandler(app, m)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		app.Logger.Info("lattice server listening", "addr", addr, "store", app.Config.Store.Backend)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		app.Logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			closeErr := srv.Close()
			return errors.Join(fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err), closeErr)
		}
		app.Logger.Info("server stopped gracefully")
		return nil
	}
}

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// ServeMCP exposes the agent and its tools as an MCP server.
func ServeMCP(ctx context.Context, app *App, m model.Model, transport, addr, version string) error {
	a, err := app.NewAgent(m)
	if err != nil {
		return err
	}
	srv, err := mcpAdapter.NewServer(a,
		mcpAdapter.WithArchive(app.Archive),
		mcpAdapter.WithLogger(app.Logger),
		mcpAdapter.WithVersion(version),
	)
	if err != nil {
		return err
	}

	switch transport {
	case TransportStdio:
		app.Logger.Info("starting MCP server (stdio)")
		return srv.ServeStdio()
	case TransportSSE:
		return srv.ServeSSE(ctx, addr, baseURL(addr))
	default:
		return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
	}
}

// baseURL is the URL clients use to reach a server listening on addr.
func baseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
