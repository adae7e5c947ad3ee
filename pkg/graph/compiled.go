package graph

import "github.com/aretw0/lattice/pkg/schema"

// Compiled is an immutable workflow graph. It can be shared across goroutines
// and reused for any number of runs.
type Compiled[S any] struct {
	name   string
	nodes  map[string]NodeFunc[S]
	order  []string
	edges  map[string][]Edge[S]
	schema schema.Validator[S]
}

// Name returns the label given with WithName, if any.
func (g *Compiled[S]) Name() string { return g.name }

// Node looks up a node function.
func (g *Compiled[S]) Node(id string) (NodeFunc[S], bool) {
	fn, ok := g.nodes[id]
	return fn, ok
}

// Nodes returns the node ids in registration order, sentinels first.
func (g *Compiled[S]) Nodes() []string {
	return append([]string(nil), g.order...)
}

// Edges returns a copy of the outgoing edges of id, in the order they fire.
func (g *Compiled[S]) Edges(id string) []Edge[S] {
	return copyEdges(g.edges[id])
}

// Schema returns the input validator, or nil when the graph accepts any initial state.
func (g *Compiled[S]) Schema() schema.Validator[S] { return g.schema }

// EdgeInfo is a state-independent description of one edge, used for
// diagrams and introspection endpoints.
type EdgeInfo struct {
	From        string   `json:"from"`
	To          string   `json:"to,omitempty"`
	Targets     []string `json:"targets,omitempty"`
	Conditional bool     `json:"conditional,omitempty"`
	Implicit    bool     `json:"implicit,omitempty"`
}

// Topology describes every edge of the graph, grouped by source node in registration order.
func (g *Compiled[S]) Topology() []EdgeInfo {
	var out []EdgeInfo
	for _, from := range g.order {
		for _, e := range g.edges[from] {
			info := EdgeInfo{From: from, Implicit: e.implicit}
			if e.Conditional() {
				info.Conditional = true
				info.Targets = append([]string(nil), e.Targets...)
			} else {
				info.To = e.To
			}
			out = append(out, info)
		}
	}
	return out
}
