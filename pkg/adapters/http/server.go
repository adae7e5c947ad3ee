package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/lattice/internal/logging"
	mermaid "github.com/aretw0/lattice/internal/presentation/graph"
	"github.com/aretw0/lattice/pkg/agent"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/graph"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Agent is the part of agent.Agent the server drives.
type Agent interface {
	Invoke(ctx context.Context, input string, opts ...runner.Option[agent.State]) (*runner.Result[agent.State], error)
	Graph() *graph.Compiled[agent.State]
	Tools() *registry.Registry
}

// Options configures the HTTP handler.
type Options struct {
	Agent Agent

	// Archive stores run summaries. Nil uses an in-memory store.
	Archive ports.RunStore

	// Gatherer serves /metrics. Nil uses prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// Server serves the agent over HTTP.
type Server struct {
	Streams *StreamManager

	agent   Agent
	archive ports.RunStore
	logger  *slog.Logger
	router  chi.Router
}

// RunRequest is the body of POST /v1/agent/runs.
type RunRequest struct {
	Input string `json:"input"`
	RunID string `json:"run_id,omitempty"`
}

// RunResponse describes a finished agent run.
type RunResponse struct {
	Run      domain.RunSummary `json:"run"`
	Reply    string            `json:"reply,omitempty"`
	Messages []domain.Message  `json:"messages,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// NewHandler creates a new HTTP handler for the agent.
func NewHandler(opts Options) (http.Handler, error) {
	return NewServer(opts)
}

// NewServer creates the server and its routes.
func NewServer(opts Options) (*Server, error) {
	if opts.Agent == nil {
		return nil, errors.New("http: agent is required")
	}
	s := &Server{
		Streams: NewStreamManager(),
		agent:   opts.Agent,
		archive: opts.Archive,
		logger:  opts.Logger,
	}
	if s.archive == nil {
		s.archive = memoryArchive()
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/agent/runs", s.CreateRun)
		r.Get("/runs", s.ListRuns)
		r.Get("/runs/{id}", s.GetRun)
		r.Delete("/runs/{id}", s.DeleteRun)
		r.Get("/runs/{id}/events", s.SubscribeEvents)
		r.Get("/graph", s.GetGraph)
		r.Get("/tools", s.GetTools)
	})
	s.router = r
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateRun handles POST /v1/agent/runs.
func (s *Server) CreateRun(w http.ResponseWriter, r *http.Request) {
	var body RunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Warn("CreateRun: invalid request body", "error", err)
		return
	}
	if body.Input == "" {
		s.writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	opts := []runner.Option[agent.State]{
		runner.WithArchive[agent.State](s.archive),
		runner.WithEventHandler[agent.State](s.broadcast),
	}
	if body.RunID != "" {
		opts = append(opts, runner.WithRunID[agent.State](body.RunID))
	}

	res, err := s.agent.Invoke(r.Context(), body.Input, opts...)
	if res == nil {
		if body.RunID != "" {
			s.Streams.Close(body.RunID)
		}
		status := http.StatusInternalServerError
		var invalid *domain.InvalidInputError
		if errors.As(err, &invalid) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.Streams.Close(res.RunID)

	resp := RunResponse{Run: res.Summary()}
	status := http.StatusOK
	if err != nil {
		s.logger.Error("CreateRun: run failed", "run_id", res.RunID, "error", err)
		resp.Error = err.Error()
		status = http.StatusInternalServerError
	} else {
		resp.Reply = agent.FinalReply(res.Output)
		resp.Messages = res.Output.Messages
	}
	s.writeJSON(w, status, resp)
}

// broadcast forwards run events to SSE subscribers of the run.
func (s *Server) broadcast(_ domain.RunRecord[agent.State], e domain.Event[agent.State]) {
	payload := streamEvent{Kind: e.Kind, NodeID: e.NodeID, Error: e.Error, Timestamp: e.Timestamp}
	if e.Kind == domain.EventNodeOutput {
		payload.Iteration = e.State.Iteration
		payload.Messages = len(e.State.Messages)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	s.Streams.Broadcast(e.RunID, string(data))
}

// ListRuns handles GET /v1/runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.archive.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("list error: %v", err))
		s.logger.Error("ListRuns failed", "error", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"runs": ids})
}

// GetRun handles GET /v1/runs/{id}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	summary, err := s.archive.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("run %s not found", id))
			return
		}
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("load error: %v", err))
		s.logger.Error("GetRun failed", "run_id", id, "error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// DeleteRun handles DELETE /v1/runs/{id}.
func (s *Server) DeleteRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.archive.Delete(r.Context(), id); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("delete error: %v", err))
		s.logger.Error("DeleteRun failed", "run_id", id, "error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetGraph handles GET /v1/graph. It returns Mermaid by default and the
// edge list with ?format=json.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	g := s.agent.Graph()
	if r.URL.Query().Get("format") == "json" {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"name":  g.Name(),
			"nodes": g.Nodes(),
			"edges": g.Topology(),
		})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(mermaid.GenerateMermaid(g, nil)))
}

// GetTools handles GET /v1/tools.
func (s *Server) GetTools(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"tools": s.agent.Tools().Definitions()})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
