package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/agent"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/model"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/runner"
	"github.com/aretw0/lattice/pkg/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, responses ...model.Response) (*Server, *memory.Store) {
	t.Helper()
	tools := registry.NewRegistry(registry.Tool{
		Name:        "echo",
		Description: "Echoes the text back",
		Parameters:  schema.Schema{"text": schema.String()},
		Function: func(_ context.Context, args map[string]any) (any, error) {
			return "E:" + args["text"].(string), nil
		},
	})
	a, err := agent.New(agent.Options{
		Name:         "echo",
		Instructions: "inst",
		Model:        model.NewScripted(responses...),
		Tools:        tools,
	})
	require.NoError(t, err)

	archive := memory.NewStore()
	s, err := NewServer(Options{Agent: a, Archive: archive, Gatherer: prometheus.NewRegistry()})
	require.NoError(t, err)
	return s, archive
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCreateRun(t *testing.T) {
	s, archive := newTestServer(t,
		model.Call(domain.FunctionCall("c1", "echo", `{"text":"hi"}`)),
		model.Reply("E:hi"),
	)

	w := do(t, s, http.MethodPost, "/v1/agent/runs", RunRequest{Input: "echo hi", RunID: "run-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp RunResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "run-1", resp.Run.ID)
	assert.Equal(t, domain.RunCompleted, resp.Run.Status)
	assert.Equal(t, "E:hi", resp.Reply)
	assert.Len(t, resp.Messages, 5)

	summary, err := archive.Load(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, summary.Status)
}

func TestCreateRun_Failure(t *testing.T) {
	s, archive := newTestServer(t, model.Call(domain.FunctionCall("c1", "missing", `{}`)))

	w := do(t, s, http.MethodPost, "/v1/agent/runs", RunRequest{Input: "hi", RunID: "run-bad"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp RunResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, domain.RunError, resp.Run.Status)
	assert.Contains(t, resp.Error, "tool with name missing not found")

	summary, err := archive.Load(context.Background(), "run-bad")
	require.NoError(t, err)
	assert.Equal(t, domain.RunError, summary.Status)
}

func TestCreateRun_BadRequest(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/agent/runs", RunRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/agent/runs", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRuns_ListGetDelete(t *testing.T) {
	s, archive := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, archive.Save(ctx, domain.RunSummary{ID: "a", Status: domain.RunCompleted}))
	require.NoError(t, archive.Save(ctx, domain.RunSummary{ID: "b", Status: domain.RunError}))

	w := do(t, s, http.MethodGet, "/v1/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"runs":["a","b"]}`, w.Body.String())

	w = do(t, s, http.MethodGet, "/v1/runs/b", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary domain.RunSummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.Equal(t, domain.RunError, summary.Status)

	w = do(t, s, http.MethodDelete, "/v1/runs/b", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, s, http.MethodGet, "/v1/runs/b", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetGraph(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/v1/graph", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "graph TD")
	assert.Contains(t, w.Body.String(), `model_step -- "?" --> function_step`)

	w = do(t, s, http.MethodGet, "/v1/graph?format=json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Name  string   `json:"name"`
		Nodes []string `json:"nodes"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "echo", body.Name)
	assert.Contains(t, body.Nodes, agent.FunctionStep)
}

func TestGetTools(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/v1/tools", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"echo"`)
	assert.Contains(t, w.Body.String(), `"strict":true`)
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubscribeEvents(t *testing.T) {
	s, _ := newTestServer(t, model.Reply("hello"))
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/runs/run-sse/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return s.Streams.Len("run-sse") == 1 }, 2*time.Second, 10*time.Millisecond)

	w := do(t, s, http.MethodPost, "/v1/agent/runs", RunRequest{Input: "hi", RunID: "run-sse"})
	require.Equal(t, http.StatusOK, w.Code)

	var data []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			data = append(data, strings.TrimPrefix(line, "data: "))
		}
		if line == "event: done" {
			break
		}
	}

	require.NotEmpty(t, data)
	assert.Equal(t, "connected", data[0])
	assert.Contains(t, data[1], `"kind":"RUN_START"`)
	assert.Contains(t, strings.Join(data, "\n"), `"kind":"RUN_END"`)
}

type rejectingAgent struct {
	*agent.Agent
}

func (rejectingAgent) Invoke(context.Context, string, ...runner.Option[agent.State]) (*runner.Result[agent.State], error) {
	return nil, &domain.InvalidInputError{Err: errors.New("bad input")}
}

func TestCreateRun_RejectedInputClosesStream(t *testing.T) {
	base, _ := newTestServer(t)
	s, err := NewServer(Options{Agent: rejectingAgent{base.agent.(*agent.Agent)}, Gatherer: prometheus.NewRegistry()})
	require.NoError(t, err)

	ch, unsubscribe := s.Streams.Subscribe("run-bad")
	defer unsubscribe()

	w := do(t, s, http.MethodPost, "/v1/agent/runs", RunRequest{Input: "hi", RunID: "run-bad"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	select {
	case _, open := <-ch:
		assert.False(t, open, "subscribers are released when the run never starts")
	case <-time.After(time.Second):
		t.Fatal("stream was left open")
	}
	assert.Equal(t, 0, s.Streams.Len("run-bad"))
}

func TestStreamManager(t *testing.T) {
	sm := NewStreamManager()
	ch, unsubscribe := sm.Subscribe("r")
	assert.Equal(t, 1, sm.Len("r"))

	sm.Broadcast("r", "one")
	sm.Broadcast("other", "ignored")
	assert.Equal(t, "one", <-ch)

	sm.Close("r")
	_, open := <-ch
	assert.False(t, open)
	assert.NotPanics(t, unsubscribe)
	assert.Equal(t, 0, sm.Len("r"))
}
