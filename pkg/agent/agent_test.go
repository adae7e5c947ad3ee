package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/agent"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/graph"
	"github.com/aretw0/lattice/pkg/model"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/runner"
	"github.com/aretw0/lattice/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTools() *registry.Registry {
	return registry.NewRegistry(registry.Tool{
		Name:        "echo",
		Description: "Echoes the text back",
		Parameters:  schema.Schema{"text": schema.String()},
		Function: func(_ context.Context, args map[string]any) (any, error) {
			return "E:" + args["text"].(string), nil
		},
	})
}

func newAgent(t *testing.T, m model.Model, opts ...func(*agent.Options)) *agent.Agent {
	t.Helper()
	o := agent.Options{
		Name:          "echo-agent",
		Instructions:  "inst",
		Model:         m,
		Tools:         echoTools(),
		MaxIterations: 5,
	}
	for _, fn := range opts {
		fn(&o)
	}
	a, err := agent.New(o)
	require.NoError(t, err)
	return a
}

func countOutputs(s agent.State) (n int, last domain.Message) {
	for _, m := range s.Messages {
		if m.Type == domain.MessageTypeFunctionCallOutput {
			n++
			last = m
		}
	}
	return n, last
}

func TestAgent_EchoEndToEnd(t *testing.T) {
	m := model.NewScripted(
		model.Call(domain.FunctionCall("call_1", "echo", `{"text":"Hello, World!"}`)),
		model.Reply("E:Hello, World!"),
	)
	a := newAgent(t, m)

	state, err := a.Run(context.Background(), "Please echo a message.")
	require.NoError(t, err)

	last, ok := agent.LastMessage(state)
	require.True(t, ok)
	assert.True(t, agent.IsAssistantMessage(last))
	assert.Equal(t, "E:Hello, World!", agent.FinalReply(state))
	assert.Equal(t, 2, state.Iteration)

	n, out := countOutputs(state)
	assert.Equal(t, 1, n)
	assert.Equal(t, "E:Hello, World!", out.Output)
	assert.Equal(t, "call_1", out.CallID)

	calls := m.Calls()
	require.Len(t, calls, 2)
	assert.Len(t, calls[0], 2, "first call sees system and user messages")
	assert.Len(t, calls[1], 4)
}

func TestAgent_ParallelCalls(t *testing.T) {
	m := model.NewScripted(
		model.Call(
			domain.FunctionCall("c1", "echo", `{"text":"a"}`),
			domain.FunctionCall("c2", "echo", `{"text":"b"}`),
		),
		model.Reply("done"),
	)
	state, err := newAgent(t, m).Run(context.Background(), "two please")
	require.NoError(t, err)

	var outputs []string
	for _, msg := range state.Messages {
		if msg.Type == domain.MessageTypeFunctionCallOutput {
			outputs = append(outputs, msg.CallID+"="+msg.Output)
		}
	}
	assert.Equal(t, []string{"c1=E:a", "c2=E:b"}, outputs)
}

func TestAgent_ArgsParseErrorIsInBand(t *testing.T) {
	m := model.NewScripted(
		model.Call(domain.FunctionCall("c1", "echo", `{"text":`)),
		model.Reply("sorry"),
	)
	state, err := newAgent(t, m).Run(context.Background(), "echo")
	require.NoError(t, err)

	n, out := countOutputs(state)
	require.Equal(t, 1, n)
	assert.Contains(t, out.Output, "Error parsing arguments for tool echo: ")
	assert.Equal(t, "sorry", agent.FinalReply(state))
}

func TestAgent_UnknownToolAborts(t *testing.T) {
	m := model.NewScripted(
		model.Call(domain.FunctionCall("c1", "missing", `{}`)),
		model.Reply("unreachable"),
	)
	res, err := newAgent(t, m).Invoke(context.Background(), "hi")

	var notFound *domain.ToolNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.Name)
	require.NotNil(t, res)
	assert.Equal(t, domain.RunError, res.Record.Status)
	assert.Len(t, m.Calls(), 1)
}

func TestAgent_ToolErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	tools := registry.NewRegistry(registry.Tool{
		Name:     "fail",
		Function: func(context.Context, map[string]any) (any, error) { return nil, boom },
	})
	m := model.NewScripted(model.Call(domain.FunctionCall("c1", "fail", `{}`)))

	_, err := newAgent(t, m, func(o *agent.Options) { o.Tools = tools }).Run(context.Background(), "hi")
	assert.ErrorIs(t, err, boom)
}

func TestAgent_ModelErrorAborts(t *testing.T) {
	m := model.NewScripted()
	_, err := newAgent(t, m).Run(context.Background(), "hi")
	assert.ErrorIs(t, err, model.ErrScriptExhausted)
}

func TestAgent_IterationCap(t *testing.T) {
	var calls int
	m := model.Func(func(context.Context, []domain.Message, []registry.Definition) (*model.Response, error) {
		calls++
		resp := model.Call(domain.FunctionCall("c", "echo", `{"text":"again"}`))
		return &resp, nil
	})

	state, err := newAgent(t, m, func(o *agent.Options) { o.MaxIterations = 3 }).Run(context.Background(), "loop")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, state.Iteration)
	assert.Empty(t, agent.FinalReply(state))

	last, _ := agent.LastMessage(state)
	assert.True(t, agent.IsFunctionCallMessage(last), "the last call is left unanswered")
}

func TestAgent_DefaultMaxIterations(t *testing.T) {
	var calls int
	m := model.Func(func(context.Context, []domain.Message, []registry.Definition) (*model.Response, error) {
		calls++
		return &model.Response{}, nil
	})

	_, err := newAgent(t, m, func(o *agent.Options) { o.MaxIterations = 0 }).Run(context.Background(), "quiet")
	require.NoError(t, err)
	assert.Equal(t, agent.DefaultMaxIterations, calls)
}

func TestAgent_SendsToolDefinitions(t *testing.T) {
	var defs []registry.Definition
	m := model.Func(func(_ context.Context, _ []domain.Message, d []registry.Definition) (*model.Response, error) {
		defs = d
		resp := model.Reply("ok")
		return &resp, nil
	})

	_, err := newAgent(t, m).Run(context.Background(), "hi")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "echo", defs[0].Name)
}

func TestAgent_Graph(t *testing.T) {
	a := newAgent(t, model.NewScripted())
	g := a.Graph()

	assert.Equal(t, "echo-agent", g.Name())
	assert.Equal(t, []string{graph.Start, graph.End, agent.ModelStep, agent.FunctionStep}, g.Nodes())

	edges := g.Edges(agent.ModelStep)
	require.Len(t, edges, 1)
	assert.True(t, edges[0].Conditional())
	assert.ElementsMatch(t, []string{agent.FunctionStep, graph.End}, edges[0].Targets)
}

func TestAgent_RequiresModel(t *testing.T) {
	_, err := agent.New(agent.Options{Name: "x"})
	assert.Error(t, err)
}

func TestAgent_ToolHooks(t *testing.T) {
	var events []string
	hooks := domain.LifecycleHooks{
		OnToolCall: func(_ context.Context, e *domain.ToolEvent) {
			events = append(events, "call:"+e.ToolName+":"+e.RunID)
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			events = append(events, "return:"+e.Output.(string))
		},
	}
	m := model.NewScripted(
		model.Call(domain.FunctionCall("c1", "echo", `{"text":"x"}`)),
		model.Reply("ok"),
	)
	a := newAgent(t, m, func(o *agent.Options) { o.Hooks = hooks })

	_, err := a.Run(context.Background(), "hi", runner.WithRunID[agent.State]("r1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"call:echo:r1", "return:E:x"}, events)
}

func TestAgent_Transcript(t *testing.T) {
	transcript := agent.NewTranscript()
	m := model.NewScripted(
		model.Call(domain.FunctionCall("c1", "echo", `{"text":"x"}`)),
		model.Reply("first"),
		model.Reply("second"),
	)
	a := newAgent(t, m, func(o *agent.Options) { o.Transcript = transcript })

	_, err := a.Run(context.Background(), "one", runner.WithRunID[agent.State]("r1"))
	require.NoError(t, err)
	_, err = a.Run(context.Background(), "two", runner.WithRunID[agent.State]("r2"))
	require.NoError(t, err)

	conv := transcript.State()
	assert.Equal(t, []string{"r1", "r2"}, conv.Runs)
	assert.Equal(t, 3, conv.ModelCalls)
	// r1: system, user, call, output, reply; r2: system, user, reply
	assert.Len(t, conv.Messages, 8)

	kinds := make([]agent.ConversationEventKind, 0, transcript.Len())
	for _, e := range transcript.Events() {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []agent.ConversationEventKind{
		agent.ConversationInput, agent.ConversationModelOutput, agent.ConversationFunctionOutput, agent.ConversationModelOutput,
		agent.ConversationInput, agent.ConversationModelOutput,
	}, kinds)

	assert.Equal(t, conv, agent.ReplayConversation(transcript.Events()))
}

func TestAgent_InvokeArchives(t *testing.T) {
	archive := memory.NewStore()
	m := model.NewScripted(model.Reply("hello"))

	res, err := newAgent(t, m).Invoke(context.Background(), "hi",
		runner.WithArchive[agent.State](archive), runner.WithRunID[agent.State]("run-1"))
	require.NoError(t, err)
	assert.Equal(t, "hello", agent.FinalReply(res.Output))

	summary, err := archive.Load(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, summary.Status)
	assert.Equal(t, "echo-agent", summary.Workflow)
	assert.Contains(t, string(summary.Output), `"hello"`)
}

func TestInitialState(t *testing.T) {
	s := agent.InitialState("You are an agent.", "Hello!")
	assert.Equal(t, 0, s.Iteration)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, domain.SystemMessage("You are an agent."), s.Messages[0])
	assert.Equal(t, domain.UserMessage("Hello!"), s.Messages[1])
}

func TestMessageHelpers(t *testing.T) {
	_, ok := agent.LastMessage(agent.State{})
	assert.False(t, ok)

	assert.True(t, agent.IsFunctionCallMessage(domain.FunctionCall("c", "echo", "{}")))
	assert.False(t, agent.IsFunctionCallMessage(domain.FunctionCall("c", "", "{}")))
	assert.False(t, agent.IsAssistantMessage(domain.UserMessage("x")))
}
