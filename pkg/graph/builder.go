package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/schema"
)

// Reserved sentinel nodes, registered in every builder created by New.
const (
	Start = domain.Start
	End   = domain.End
)

// NodeFunc computes a node's output from its input snapshot.
type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// Selector chooses the target of a conditional edge from the source node's output.
type Selector[S any] func(ctx context.Context, state S) (string, error)

// Edge is an outgoing connection of a node.
// Exactly one of To (unconditional) or Condition with Targets (conditional) is set.
type Edge[S any] struct {
	To        string
	Targets   []string
	Condition Selector[S]

	implicit bool
}

// Conditional reports whether the edge is routed by a selector.
func (e Edge[S]) Conditional() bool { return e.Condition != nil }

// Implicit reports whether the edge was added by Compile to reach End.
func (e Edge[S]) Implicit() bool { return e.implicit }

// Option configures a Builder.
type Option[S any] func(*Builder[S])

// WithSchema validates the initial state of every run before it starts.
func WithSchema[S any](v schema.Validator[S]) Option[S] {
	return func(b *Builder[S]) {
		b.schema = v
	}
}

// WithName labels the graph in logs, metrics and diagrams.
func WithName[S any](name string) Option[S] {
	return func(b *Builder[S]) {
		b.name = name
	}
}

// Builder accumulates nodes and edges. It is not safe for concurrent use.
type Builder[S any] struct {
	name   string
	nodes  map[string]NodeFunc[S]
	order  []string
	edges  map[string][]Edge[S]
	schema schema.Validator[S]
}

// New creates a builder with Start and End registered as identity nodes.
func New[S any](opts ...Option[S]) *Builder[S] {
	b := &Builder[S]{}
	for _, opt := range opts {
		opt(b)
	}
	b.init()
	b.register(Start, identity[S])
	b.register(End, identity[S])
	return b
}

func identity[S any](_ context.Context, state S) (S, error) {
	return state, nil
}

func (b *Builder[S]) init() {
	if b.nodes == nil {
		b.nodes = make(map[string]NodeFunc[S])
	}
	if b.edges == nil {
		b.edges = make(map[string][]Edge[S])
	}
}

func (b *Builder[S]) register(id string, fn NodeFunc[S]) {
	b.nodes[id] = fn
	b.order = append(b.order, id)
}

// AddNode registers fn under id.
func (b *Builder[S]) AddNode(id string, fn NodeFunc[S]) error {
	b.init()
	if _, exists := b.nodes[id]; exists {
		return &domain.DuplicateNodeError{NodeID: id}
	}
	if fn == nil {
		return fmt.Errorf("node %q: function is nil", id)
	}
	b.register(id, fn)
	return nil
}

// AddEdge connects from to to. Several edges may leave the same node;
// they fire in the order they were added.
func (b *Builder[S]) AddEdge(from, to string) error {
	if err := b.checkSource(from); err != nil {
		return err
	}
	if !b.has(to) {
		return &domain.UnknownNodeError{NodeID: to}
	}
	b.edges[from] = append(b.edges[from], Edge[S]{To: to})
	return nil
}

// AddConditionalEdge routes the output of from to whichever member of targets
// selector returns. The target set is fixed here and enforced at run time.
func (b *Builder[S]) AddConditionalEdge(from string, targets []string, selector Selector[S]) error {
	if err := b.checkSource(from); err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("conditional edge from %q: no targets", from)
	}
	if selector == nil {
		return fmt.Errorf("conditional edge from %q: selector is nil", from)
	}
	for _, to := range targets {
		if !b.has(to) {
			return &domain.UnknownNodeError{NodeID: to}
		}
	}
	b.edges[from] = append(b.edges[from], Edge[S]{
		Targets:   append([]string(nil), targets...),
		Condition: selector,
	})
	return nil
}

func (b *Builder[S]) checkSource(from string) error {
	if !b.has(from) {
		return &domain.UnknownNodeError{NodeID: from}
	}
	if from == End {
		return errors.New("edges cannot leave " + End)
	}
	return nil
}

func (b *Builder[S]) has(id string) bool {
	_, ok := b.nodes[id]
	return ok
}

// Compile takes an immutable snapshot of the builder.
// Every node other than End that has no outgoing edge is connected to End.
// The builder is left untouched and may be compiled again.
func (b *Builder[S]) Compile() (*Compiled[S], error) {
	for _, id := range []string{Start, End} {
		if !b.has(id) {
			return nil, &domain.MissingSentinelError{NodeID: id}
		}
	}

	g := &Compiled[S]{
		name:   b.name,
		nodes:  make(map[string]NodeFunc[S], len(b.nodes)),
		order:  append([]string(nil), b.order...),
		edges:  make(map[string][]Edge[S], len(b.nodes)),
		schema: b.schema,
	}
	for id, fn := range b.nodes {
		g.nodes[id] = fn
	}
	for _, id := range b.order {
		if id == End {
			continue
		}
		src := b.edges[id]
		if len(src) == 0 {
			g.edges[id] = []Edge[S]{{To: End, implicit: true}}
			continue
		}
		g.edges[id] = copyEdges(src)
	}
	return g, nil
}

func copyEdges[S any](src []Edge[S]) []Edge[S] {
	out := make([]Edge[S], len(src))
	for i, e := range src {
		e.Targets = append([]string(nil), e.Targets...)
		out[i] = e
	}
	return out
}
