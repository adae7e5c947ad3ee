package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/graph"
	"github.com/aretw0/lattice/pkg/model"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/aretw0/lattice/pkg/runner"
)

const (
	// ModelStep calls the model with the conversation so far.
	ModelStep = "model_step"
	// FunctionStep executes the function calls the model requested.
	FunctionStep = "function_step"

	DefaultMaxIterations = 10
)

// State is the value threaded through the agent graph.
type State struct {
	Iteration int              `json:"iteration"`
	Messages  []domain.Message `json:"messages"`
}

// InitialState starts a conversation with the system instructions and the user input.
func InitialState(instructions, input string) State {
	return State{
		Iteration: 0,
		Messages: []domain.Message{
			domain.SystemMessage(instructions),
			domain.UserMessage(input),
		},
	}
}

// Options configures an Agent.
type Options struct {
	Name         string
	Instructions string
	Model        model.Model

	// Tools the model may call. Nil means no tools.
	Tools *registry.Registry

	// MaxIterations caps the number of model calls per run.
	// Zero means DefaultMaxIterations.
	MaxIterations int

	Logger *slog.Logger
	Hooks  domain.LifecycleHooks

	// Transcript, when set, receives the conversation items of every run.
	Transcript *Transcript
}

// Agent drives a model through a two-node cyclic graph: the model step and
// the function step alternate until the model answers or the iteration cap
// is reached. An Agent is safe for concurrent runs.
type Agent struct {
	name          string
	instructions  string
	model         model.Model
	tools         *registry.Registry
	maxIterations int
	logger        *slog.Logger
	hooks         domain.LifecycleHooks
	transcript    *Transcript
	graph         *graph.Compiled[State]
}

// New validates opts and compiles the agent graph.
func New(opts Options) (*Agent, error) {
	if opts.Model == nil {
		return nil, errors.New("agent: model is required")
	}
	a := &Agent{
		name:          opts.Name,
		instructions:  opts.Instructions,
		model:         opts.Model,
		tools:         opts.Tools,
		maxIterations: opts.MaxIterations,
		logger:        opts.Logger,
		hooks:         opts.Hooks,
		transcript:    opts.Transcript,
	}
	if a.tools == nil {
		a.tools = registry.NewRegistry()
	}
	if a.maxIterations <= 0 {
		a.maxIterations = DefaultMaxIterations
	}
	if a.logger == nil {
		a.logger = logging.NewNop()
	}

	g, err := a.buildGraph()
	if err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}
	a.graph = g
	return a, nil
}

func (a *Agent) buildGraph() (*graph.Compiled[State], error) {
	b := graph.New(graph.WithName[State](a.name))

	if err := b.AddNode(ModelStep, a.modelStep); err != nil {
		return nil, err
	}
	if err := b.AddNode(FunctionStep, a.functionStep); err != nil {
		return nil, err
	}
	if err := b.AddEdge(graph.Start, ModelStep); err != nil {
		return nil, err
	}
	if err := b.AddConditionalEdge(ModelStep, []string{FunctionStep, graph.End}, a.route); err != nil {
		return nil, err
	}
	if err := b.AddEdge(FunctionStep, ModelStep); err != nil {
		return nil, err
	}
	return b.Compile()
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.name }

// Instructions returns the system instructions each run starts with.
func (a *Agent) Instructions() string { return a.instructions }

// Tools returns the registry the agent calls into.
func (a *Agent) Tools() *registry.Registry { return a.tools }

// Graph returns the compiled agent graph.
func (a *Agent) Graph() *graph.Compiled[State] { return a.graph }

// Run answers input and returns the final state.
func (a *Agent) Run(ctx context.Context, input string, opts ...runner.Option[State]) (State, error) {
	res, err := a.Invoke(ctx, input, opts...)
	if err != nil {
		return State{}, err
	}
	return res.Output, nil
}

// Invoke answers input and returns the full run result. On failure the
// result is returned alongside the error so the run can still be archived.
func (a *Agent) Invoke(ctx context.Context, input string, opts ...runner.Option[State]) (*runner.Result[State], error) {
	initial := InitialState(a.instructions, input)

	base := []runner.Option[State]{
		runner.WithLogger[State](a.logger),
		runner.WithLifecycleHooks[State](a.hooks),
	}
	if a.transcript != nil {
		base = append(base, runner.WithEventHandler[State](func(_ domain.RunRecord[State], e domain.Event[State]) {
			if e.Kind == domain.EventRunStart {
				a.transcript.Dispatch(ConversationEvent{Kind: ConversationInput, RunID: e.RunID, Messages: initial.Messages})
			}
		}))
	}
	return runner.Execute(ctx, a.graph, initial, append(base, opts...)...)
}

func (a *Agent) modelStep(ctx context.Context, s State) (State, error) {
	resp, err := a.model.Invoke(ctx, s.Messages, a.tools.Definitions())
	if err != nil {
		return s, err
	}
	var output []domain.Message
	if resp != nil {
		output = resp.Output
	}

	a.logger.Debug("model step", "iteration", s.Iteration+1, "items", len(output))
	a.record(ctx, ConversationModelOutput, output)

	return State{
		Iteration: s.Iteration + 1,
		Messages:  append(slices.Clip(s.Messages), output...),
	}, nil
}

// functionStep runs the function calls at the tail of the conversation, in order.
func (a *Agent) functionStep(ctx context.Context, s State) (State, error) {
	start := len(s.Messages)
	for start > 0 && IsFunctionCallMessage(s.Messages[start-1]) {
		start--
	}

	outputs := make([]domain.Message, 0, len(s.Messages)-start)
	for _, call := range s.Messages[start:] {
		out, err := a.callTool(ctx, call)
		if err != nil {
			return s, err
		}
		outputs = append(outputs, domain.FunctionCallOutput(call.CallID, out))
	}

	a.record(ctx, ConversationFunctionOutput, outputs)

	return State{
		Iteration: s.Iteration,
		Messages:  append(slices.Clip(s.Messages), outputs...),
	}, nil
}

// callTool invokes one function call. Argument parse failures are reported
// back to the model as the call's output; every other failure aborts the run.
func (a *Agent) callTool(ctx context.Context, call domain.Message) (string, error) {
	runID := runner.RunID(ctx)
	if a.hooks.OnToolCall != nil {
		a.hooks.OnToolCall(ctx, &domain.ToolEvent{
			HookBase: domain.HookBase{Timestamp: time.Now(), Type: domain.HookToolCall, RunID: runID},
			CallID:   call.CallID,
			ToolName: call.Name,
			Input:    call.Arguments,
		})
	}

	out, err := a.tools.Invoke(ctx, call.Name, call.Arguments)
	isError := false
	if err != nil {
		var parseErr *domain.ToolArgsParseError
		if !errors.As(err, &parseErr) {
			a.logger.Debug("tool failed", "tool", call.Name, "call_id", call.CallID, "error", err)
			return "", err
		}
		a.logger.Debug("tool arguments rejected", "tool", call.Name, "call_id", call.CallID, "error", err)
		out = fmt.Sprintf("Error parsing arguments for tool %s: %s", call.Name, parseErr.Error())
		isError = true
	}

	if a.hooks.OnToolReturn != nil {
		a.hooks.OnToolReturn(ctx, &domain.ToolEvent{
			HookBase: domain.HookBase{Timestamp: time.Now(), Type: domain.HookToolReturn, RunID: runID},
			CallID:   call.CallID,
			ToolName: call.Name,
			Output:   out,
			IsError:  isError,
		})
	}
	return out, nil
}

// route ends the run once the model has answered or the iteration cap is hit.
func (a *Agent) route(_ context.Context, s State) (string, error) {
	if last, ok := LastMessage(s); ok && IsAssistantMessage(last) {
		return graph.End, nil
	}
	if s.Iteration >= a.maxIterations {
		a.logger.Warn("iteration cap reached", "max_iterations", a.maxIterations)
		return graph.End, nil
	}
	return FunctionStep, nil
}

func (a *Agent) record(ctx context.Context, kind ConversationEventKind, msgs []domain.Message) {
	if a.transcript == nil {
		return
	}
	a.transcript.Dispatch(ConversationEvent{
		Kind:     kind,
		RunID:    runner.RunID(ctx),
		Messages: slices.Clone(msgs),
	})
}
