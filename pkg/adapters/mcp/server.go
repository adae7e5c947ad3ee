package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	mermaid "github.com/aretw0/lattice/internal/presentation/graph"
	"github.com/aretw0/lattice/pkg/agent"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/graph"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RunAgentTool is the name of the tool that runs the agent on an input.
const RunAgentTool = "run_agent"

// Agent is the part of agent.Agent exposed over MCP.
type Agent interface {
	Invoke(ctx context.Context, input string, opts ...runner.Option[agent.State]) (*runner.Result[agent.State], error)
	Graph() *graph.Compiled[agent.State]
	Tools() *registry.Registry
}

// RunAgentArgs are the arguments of run_agent.
type RunAgentArgs struct {
	Input string `json:"input"`
}

// RunAgentResult aligns with the HTTP run response.
type RunAgentResult struct {
	RunID  string           `json:"run_id" jsonschema_description:"Identifier of the run"`
	Status domain.RunStatus `json:"status" jsonschema_description:"Final status of the run"`
	Reply  string           `json:"reply" jsonschema_description:"Final assistant message"`
	Steps  int              `json:"steps" jsonschema_description:"Number of node executions"`
}

// Server exposes an agent and its tools as an MCP server.
type Server struct {
	agent     Agent
	archive   ports.RunStore
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the server.
type Option func(*options)

type options struct {
	name    string
	version string
	archive ports.RunStore
	logger  *slog.Logger
}

// WithName sets the server name announced to clients.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithVersion sets the server version announced to clients.
func WithVersion(version string) Option {
	return func(o *options) { o.version = version }
}

// WithArchive saves a summary of every run_agent call.
func WithArchive(store ports.RunStore) Option {
	return func(o *options) { o.archive = store }
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(a Agent, opts ...Option) (*Server, error) {
	o := options{name: "lattice-mcp", version: "dev", logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		agent:   a,
		archive: o.archive,
		logger:  o.logger,
		mcpServer: server.NewMCPServer(o.name, o.version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithRecovery(),
		),
	}
	if err := s.registerTools(); err != nil {
		return nil, err
	}
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying server, e.g. to mount another transport.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() error {
	// Every registry tool, with its own JSON schema
	tools := s.agent.Tools()
	for _, def := range tools.Definitions() {
		raw, err := json.Marshal(def.Parameters)
		if err != nil {
			return fmt.Errorf("tool %s: encode schema: %w", def.Name, err)
		}
		name := def.Name
		s.mcpServer.AddTool(mcp.NewToolWithRawSchema(name, def.Description, raw),
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				out, err := tools.Invoke(ctx, name, request.GetArguments())
				if err != nil {
					s.logger.Warn("MCP tool call failed", "tool", name, "error", err)
					return mcp.NewToolResultError(err.Error()), nil
				}
				return mcp.NewToolResultText(out), nil
			})
	}

	// TOOL: run_agent
	s.mcpServer.AddTool(mcp.NewTool(RunAgentTool,
		mcp.WithDescription("Run the agent on an input and return its final reply."),
		mcp.WithString("input", mcp.Required(), mcp.Description("User input")),
		mcp.WithOutputSchema[RunAgentResult](),
	), mcp.NewStructuredToolHandler(s.handleRunAgent))

	// TOOL: get_graph
	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the agent graph as a Mermaid flowchart."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(mermaid.GenerateMermaid(s.agent.Graph(), nil)), nil
	})
	return nil
}

func (s *Server) handleRunAgent(ctx context.Context, _ mcp.CallToolRequest, args RunAgentArgs) (RunAgentResult, error) {
	if args.Input == "" {
		return RunAgentResult{}, errors.New("input is required")
	}

	var opts []runner.Option[agent.State]
	if s.archive != nil {
		opts = append(opts, runner.WithArchive[agent.State](s.archive))
	}

	res, err := s.agent.Invoke(ctx, args.Input, opts...)
	if err != nil {
		return RunAgentResult{}, err
	}
	return RunAgentResult{
		RunID:  res.RunID,
		Status: res.Record.Status,
		Reply:  agent.FinalReply(res.Output),
		Steps:  res.Steps,
	}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: lattice://graph
	s.mcpServer.AddResource(mcp.NewResource("lattice://graph", "Agent Graph Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		g := s.agent.Graph()
		jsonBytes, err := json.Marshal(map[string]any{
			"name":  g.Name(),
			"nodes": g.Nodes(),
			"edges": g.Topology(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode graph: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "lattice://graph",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
