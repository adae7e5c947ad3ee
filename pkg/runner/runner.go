package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/graph"
	"github.com/aretw0/lattice/pkg/store"
)

// Result is the complete outcome of one run.
type Result[S any] struct {
	RunID    string
	Workflow string

	// Output is the state recorded at End. It is the zero value when the run failed.
	Output S

	Record     domain.RunRecord[S]
	Events     []domain.Event[S]
	Steps      int
	StartedAt  time.Time
	FinishedAt time.Time

	// Err is the error Execute returned alongside this result, if any.
	Err error
}

// Summary condenses the result for archiving. Output is JSON encoded when possible.
func (r *Result[S]) Summary() domain.RunSummary {
	s := domain.RunSummary{
		ID:         r.RunID,
		Workflow:   r.Workflow,
		Status:     r.Record.Status,
		Error:      r.Record.Error,
		Steps:      r.Steps,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	if r.Record.Status == domain.RunCompleted {
		if raw, err := json.Marshal(r.Output); err == nil {
			s.Output = raw
		}
	}
	return s
}

// Run executes g from initial and returns the state recorded at End.
func Run[S any](ctx context.Context, g *graph.Compiled[S], initial S, opts ...Option[S]) (S, error) {
	res, err := Execute(ctx, g, initial, opts...)
	if err != nil {
		var zero S
		return zero, err
	}
	return res.Output, nil
}

// Execute executes g from initial and returns the full result.
//
// If the graph has an input schema and initial fails it, Execute returns a
// *domain.InvalidInputError and a nil result: the run never starts. Any later
// failure dispatches RUN_ERROR and is returned together with the result, so the
// record and the event log stay available for diagnosis.
func Execute[S any](ctx context.Context, g *graph.Compiled[S], initial S, opts ...Option[S]) (*Result[S], error) {
	if g == nil {
		return nil, errors.New("runner: graph is nil")
	}
	cfg := newConfig(opts)
	ctx = context.WithValue(ctx, runIDKey{}, cfg.runID)

	workflow := cfg.workflow
	if workflow == "" {
		workflow = g.Name()
	}
	logger := cfg.logger.With("run_id", cfg.runID)
	if workflow != "" {
		logger = logger.With("workflow", workflow)
	}

	if v := g.Schema(); v != nil {
		validated, err := v.Validate(initial)
		if err != nil {
			logger.Debug("initial state rejected", "error", err)
			return nil, &domain.InvalidInputError{Err: err}
		}
		initial = validated
	}

	r := &run[S]{
		cfg:    cfg,
		graph:  g,
		logger: logger,
		store:  store.New(Reduce[S], domain.NewRunRecord(initial)),
	}
	for _, h := range cfg.handlers {
		r.store.Subscribe(store.Listener[domain.RunRecord[S], domain.Event[S]](h))
	}

	res := &Result[S]{RunID: cfg.runID, Workflow: workflow, StartedAt: cfg.now()}
	r.start(ctx)

	err := r.loop(ctx, initial)
	if err == nil {
		r.dispatch(domain.Event[S]{Kind: domain.EventRunEnd})
		if out, ok := r.store.State().Output(); ok {
			res.Output = out
		} else {
			err = &domain.RunDidNotTerminateError{RunID: cfg.runID}
		}
	}
	if err != nil {
		r.dispatch(domain.Event[S]{Kind: domain.EventRunError, Error: err.Error()})
	}

	res.Record = r.store.State()
	res.Events = r.store.Events()
	res.Steps = r.steps
	res.FinishedAt = cfg.now()
	res.Err = err
	r.finish(ctx, res)
	return res, err
}

type runIDKey struct{}

// RunID returns the identifier of the run ctx belongs to.
// Nodes and selectors receive a context that carries it.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

type item[S any] struct {
	node  string
	state S
}

type run[S any] struct {
	cfg    *config[S]
	graph  *graph.Compiled[S]
	logger *slog.Logger
	store  *store.Store[domain.RunRecord[S], domain.Event[S]]
	steps  int
}

func (r *run[S]) dispatch(e domain.Event[S]) {
	e.RunID = r.cfg.runID
	e.Timestamp = r.cfg.now()
	r.store.Dispatch(e)
}

func (r *run[S]) start(ctx context.Context) {
	r.logger.Info("run started")
	r.dispatch(domain.Event[S]{Kind: domain.EventRunStart})
	if r.cfg.hooks.OnRunStart != nil {
		r.cfg.hooks.OnRunStart(ctx, &domain.RunEvent{
			HookBase: r.hookBase(domain.HookRunStart),
		})
	}
}

// loop drains the FIFO queue. It stops at the first failure, so no node runs
// after the one that failed.
func (r *run[S]) loop(ctx context.Context, initial S) error {
	queue := []item[S]{{node: graph.Start, state: initial}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		current := queue[0]
		queue = queue[1:]

		output, err := r.step(ctx, current)
		if err != nil {
			return err
		}

		for _, edge := range r.graph.Edges(current.node) {
			if !edge.Conditional() {
				queue = append(queue, item[S]{node: edge.To, state: output})
				continue
			}
			target, err := edge.Condition(ctx, output)
			if err != nil {
				return fmt.Errorf("conditional edge from %q: %w", current.node, err)
			}
			if !slices.Contains(edge.Targets, target) {
				return &domain.InvalidEdgeTargetError{From: current.node, Target: target, Targets: edge.Targets}
			}
			queue = append(queue, item[S]{node: target, state: output})
		}
	}
	return nil
}

func (r *run[S]) step(ctx context.Context, it item[S]) (S, error) {
	var zero S
	fn, ok := r.graph.Node(it.node)
	if !ok {
		return zero, &domain.UnknownNodeError{NodeID: it.node}
	}

	r.steps++
	r.dispatch(domain.Event[S]{Kind: domain.EventNodeInput, NodeID: it.node, State: it.state})
	if r.cfg.hooks.OnNodeEnter != nil {
		r.cfg.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			HookBase: r.hookBase(domain.HookNodeEnter),
			NodeID:   it.node,
		})
	}

	began := r.cfg.now()
	output, err := fn(ctx, it.state)
	elapsed := r.cfg.now().Sub(began)

	if r.cfg.hooks.OnNodeLeave != nil {
		r.cfg.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
			HookBase: r.hookBase(domain.HookNodeLeave),
			NodeID:   it.node,
			Duration: elapsed,
			Err:      err,
		})
	}
	if err != nil {
		r.logger.Debug("node failed", "node", it.node, "duration", elapsed, "error", err)
		return zero, fmt.Errorf("node %q: %w", it.node, err)
	}
	r.logger.Debug("node completed", "node", it.node, "duration", elapsed)

	r.dispatch(domain.Event[S]{Kind: domain.EventNodeOutput, NodeID: it.node, State: output})
	return output, nil
}

func (r *run[S]) finish(ctx context.Context, res *Result[S]) {
	duration := res.FinishedAt.Sub(res.StartedAt)
	if res.Err != nil {
		r.logger.Error("run failed", "steps", res.Steps, "duration", duration, "error", res.Err)
	} else {
		r.logger.Info("run completed", "steps", res.Steps, "duration", duration)
	}

	if r.cfg.hooks.OnRunEnd != nil {
		r.cfg.hooks.OnRunEnd(ctx, &domain.RunEvent{
			HookBase: r.hookBase(domain.HookRunEnd),
			Status:   res.Record.Status,
			Err:      res.Err,
			Duration: duration,
		})
	}

	if r.cfg.archive != nil {
		if err := r.cfg.archive.Save(context.WithoutCancel(ctx), res.Summary()); err != nil {
			r.logger.Warn("failed to archive run", "error", err)
		}
	}
}

func (r *run[S]) hookBase(t domain.HookType) domain.HookBase {
	return domain.HookBase{Timestamp: r.cfg.now(), Type: t, RunID: r.cfg.runID}
}
